// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

// Package seed loads development and test principals from YAML manifests.
package seed

import (
	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// SupportedVersions is the manifest version constraint this build accepts.
const SupportedVersions = "^1"

// Manifest is a seed file.
type Manifest struct {
	Version    string          `yaml:"version" jsonschema:"description=Manifest format version (semver)"`
	Candidates []CandidateSeed `yaml:"candidates,omitempty"`
	Admins     []AdminSeed     `yaml:"admins,omitempty"`
}

// CandidateSeed describes one candidate. Password and PrivateKey are
// plaintext; the loader hashes and seals them.
type CandidateSeed struct {
	Application int32  `yaml:"application" jsonschema:"minimum=1"`
	Password    string `yaml:"password" jsonschema:"minLength=1"`
	PublicKey   string `yaml:"public_key"`
	PrivateKey  string `yaml:"private_key"`
}

// AdminSeed describes one admin.
type AdminSeed struct {
	ID         int32  `yaml:"id" jsonschema:"minimum=1"`
	Name       string `yaml:"name" jsonschema:"minLength=1"`
	Password   string `yaml:"password" jsonschema:"minLength=1"`
	PublicKey  string `yaml:"public_key"`
	PrivateKey string `yaml:"private_key"`
}

// Parse validates data against the manifest schema and decodes it.
func Parse(data []byte) (*Manifest, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, oops.Code("SEED_INVALID_YAML").Wrap(err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the version constraint and rejects duplicate ids.
func (m *Manifest) Validate() error {
	v, err := semver.NewVersion(m.Version)
	if err != nil {
		return oops.Code("SEED_INVALID_VERSION").With("version", m.Version).Wrap(err)
	}
	constraint, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return oops.Code("SEED_INVALID_VERSION").Wrap(err)
	}
	if !constraint.Check(v) {
		return oops.Code("SEED_UNSUPPORTED_VERSION").
			With("version", m.Version).
			With("supported", SupportedVersions).
			Errorf("manifest version %s is not supported", m.Version)
	}

	seen := make(map[int32]bool, len(m.Candidates))
	for _, c := range m.Candidates {
		if seen[c.Application] {
			return oops.Code("SEED_DUPLICATE_PRINCIPAL").
				With("kind", "candidate").
				With("principal_id", c.Application).
				Errorf("candidate %d listed twice", c.Application)
		}
		seen[c.Application] = true
	}
	clear(seen)
	for _, a := range m.Admins {
		if seen[a.ID] {
			return oops.Code("SEED_DUPLICATE_PRINCIPAL").
				With("kind", "admin").
				With("principal_id", a.ID).
				Errorf("admin %d listed twice", a.ID)
		}
		seen[a.ID] = true
	}
	return nil
}
