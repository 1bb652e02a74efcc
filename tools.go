//go:build tools

package tools

// This file tracks versions of CLI tool dependencies.
// The goose binary is used to author and apply SQL migrations.

import (
	_ "github.com/pressly/goose/v3/cmd/goose"
)
