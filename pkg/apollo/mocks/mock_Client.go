// Package mocks provides test doubles for the apollo client.
package mocks

import (
	"context"

	"github.com/sells-group/warmline/internal/model"
	apollo "github.com/sells-group/warmline/pkg/apollo"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Match provides a mock function with given fields: ctx, req
func (_m *MockClient) Match(ctx context.Context, req apollo.MatchRequest) (*model.PersonMatch, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for Match")
	}

	var r0 *model.PersonMatch
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, apollo.MatchRequest) (*model.PersonMatch, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, apollo.MatchRequest) *model.PersonMatch); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.PersonMatch)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, apollo.MatchRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
