package anthropic

// BuildCachedSystemBlocks constructs system content blocks with a cache
// breakpoint on the last block. The sender profile and template material are
// identical across every prospect in a run, so they are sent as a cached
// prefix with a 1-hour TTL.
func BuildCachedSystemBlocks(texts ...string) []SystemBlock {
	var blocks []SystemBlock
	for _, t := range texts {
		if t == "" {
			continue
		}
		blocks = append(blocks, SystemBlock{Text: t})
	}
	if len(blocks) > 0 {
		blocks[len(blocks)-1].CacheControl = &CacheControl{TTL: "1h"}
	}
	return blocks
}
