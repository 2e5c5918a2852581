// Package mocks provides shared function-field mocks for the interfaces used
// across the application.
//
// Each mock has an XxxFn field per method. When the field is nil the mock
// returns its default values. Calls are recorded for later assertions.
//
//	docs := &mocks.MockDocumentStore{
//	    Documents: map[domain.DocID]*domain.Document{"42": {ID: "42", Text: "..."}},
//	}
package mocks
