// Package templates loads the sender profile and per-tag drafting material.
package templates

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/warmline/internal/resilience"
)

// File names inside a tag directory.
const (
	introFile       = "introductory_email.md"
	caseStudiesFile = "case_studies.md"
	offeringsFile   = "offerings.md"
	signatureFile   = "signature.html"
	skillsFile      = "email_skills.md"
)

// Profile is the sender profile used by scoring and drafting prompts.
type Profile struct {
	// Text is the raw profile document sent to the model.
	Text string
	// Name is the sender's name, used for sign-offs when no signature exists.
	Name string
}

// LoadProfile reads and validates a YAML profile. A missing or unparsable
// profile is fatal for the batch.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, resilience.Fatal(eris.Wrapf(err, "templates: read profile %s", path))
	}

	var doc struct {
		Name string `yaml:"name"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, resilience.Fatal(eris.Wrapf(err, "templates: parse profile %s", path))
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, resilience.Fatalf("templates: profile %s is empty", path)
	}
	return &Profile{Text: text, Name: doc.Name}, nil
}

// Set is the drafting material for one tag.
type Set struct {
	Tag          string
	Introductory string
	CaseStudies  string
	Offerings    string
	Signature    string
}

// Library loads template sets on first use and keeps them for the life of a
// run. It is safe for concurrent use.
type Library struct {
	dir string

	mu     sync.Mutex
	sets   map[string]*Set
	skills *string
}

// NewLibrary returns a Library rooted at dir.
func NewLibrary(dir string) *Library {
	return &Library{dir: dir, sets: make(map[string]*Set)}
}

// Get returns the template set for tag. A tag without an introductory
// template is a fatal configuration error.
func (l *Library) Get(tag string) (*Set, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if s, ok := l.sets[tag]; ok {
		return s, nil
	}

	tagDir := filepath.Join(l.dir, tag)
	intro, err := readOptional(filepath.Join(tagDir, introFile))
	if err != nil {
		return nil, err
	}
	if intro == "" {
		return nil, resilience.Fatalf("templates: no %s for tag %q in %s", introFile, tag, tagDir)
	}

	s := &Set{Tag: tag, Introductory: intro}
	if s.CaseStudies, err = readOptional(filepath.Join(tagDir, caseStudiesFile)); err != nil {
		return nil, err
	}
	if s.Offerings, err = readOptional(filepath.Join(tagDir, offeringsFile)); err != nil {
		return nil, err
	}
	if s.Signature, err = readOptional(filepath.Join(tagDir, signatureFile)); err != nil {
		return nil, err
	}

	l.sets[tag] = s
	return s, nil
}

// EmailSkills returns the shared writing guidelines, or "" if absent.
func (l *Library) EmailSkills() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.skills != nil {
		return *l.skills, nil
	}
	skills, err := readOptional(filepath.Join(l.dir, skillsFile))
	if err != nil {
		return "", err
	}
	l.skills = &skills
	return skills, nil
}

func readOptional(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "templates: read %s", path)
	}
	return strings.TrimSpace(string(data)), nil
}
