package services

import "github.com/slub/lisztbib/internal/core/ports/driven"

// Ensure NopProgress implements the interface.
var _ driven.ProgressReporter = NopProgress{}

// NopProgress discards all progress notifications.
type NopProgress struct{}

func (NopProgress) Section(string) {}
func (NopProgress) Start(int)      {}
func (NopProgress) Advance(int)    {}
func (NopProgress) Finish()        {}
