// Package mocks provides test doubles for the font parser.
package mocks

import (
	model "github.com/fontintel/fontintel/internal/model"
	mock "github.com/stretchr/testify/mock"
)

// MockParser is a mock type for the Parser interface.
type MockParser struct {
	mock.Mock
}

// Parse provides a mock function with given fields: data, filename
func (_m *MockParser) Parse(data []byte, filename string) (*model.ParsedFontFacts, error) {
	ret := _m.Called(data, filename)

	if len(ret) == 0 {
		panic("no return value specified for Parse")
	}

	var r0 *model.ParsedFontFacts
	var r1 error
	if rf, ok := ret.Get(0).(func([]byte, string) (*model.ParsedFontFacts, error)); ok {
		return rf(data, filename)
	}
	if rf, ok := ret.Get(0).(func([]byte, string) *model.ParsedFontFacts); ok {
		r0 = rf(data, filename)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.ParsedFontFacts)
		}
	}

	if rf, ok := ret.Get(1).(func([]byte, string) error); ok {
		r1 = rf(data, filename)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockParser creates a new instance of MockParser.
func NewMockParser(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockParser {
	m := &MockParser{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
