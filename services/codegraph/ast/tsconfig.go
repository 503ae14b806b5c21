// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
)

// TSConfigFileName is the marker file every indexable project must contain.
const TSConfigFileName = "tsconfig.json"

// defaultExcludes mirrors the compiler's implicit exclude list.
var defaultExcludes = []string{"node_modules", "bower_components", "jspm_packages"}

// TSConfig holds the subset of tsconfig.json that controls file selection.
//
// Description:
//
//	tsconfig.json is JSONC (comments and trailing commas are allowed), so the
//	raw bytes are standardized with hujson before decoding. "extends" chains
//	are not followed: only the root file's own include/exclude/files apply.
type TSConfig struct {
	Files           []string `json:"files"`
	Include         []string `json:"include"`
	Exclude         []string `json:"exclude"`
	CompilerOptions struct {
		OutDir  string `json:"outDir"`
		RootDir string `json:"rootDir"`
	} `json:"compilerOptions"`
}

// ReadTSConfig reads and decodes <root>/tsconfig.json.
//
// Outputs:
//
//	*TSConfig - Decoded config with defaults applied. Never nil on success.
//	error - ErrTSConfigNotFound if the file is missing, ErrInvalidTSConfig
//	        (wrapped) if it cannot be decoded.
func ReadTSConfig(root string) (*TSConfig, error) {
	path := filepath.Join(root, TSConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrTSConfigNotFound, root)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return parseTSConfig(data)
}

// parseTSConfig decodes JSONC tsconfig content and applies defaults.
func parseTSConfig(data []byte) (*TSConfig, error) {
	cfg := &TSConfig{}
	if len(strings.TrimSpace(string(data))) > 0 {
		standard, err := hujson.Standardize(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTSConfig, err)
		}
		if err := json.Unmarshal(standard, cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTSConfig, err)
		}
	}

	if len(cfg.Include) == 0 && len(cfg.Files) == 0 {
		cfg.Include = []string{"**/*"}
	}
	if cfg.Exclude == nil {
		cfg.Exclude = append([]string(nil), defaultExcludes...)
		if out := strings.TrimPrefix(filepath.ToSlash(cfg.CompilerOptions.OutDir), "./"); out != "" {
			cfg.Exclude = append(cfg.Exclude, out)
		}
	}
	return cfg, nil
}
