// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hookmux Contributors

//go:build integration

package mux_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/hookmux/hookmux/internal/source"
)

func TestMux(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Hook Multiplexer Integration Suite")
}

// writePackage creates one package directory with a manifest and entry files.
func writePackage(root, dir, manifest string, files map[string]string) {
	pkgDir := filepath.Join(root, dir)
	Expect(os.MkdirAll(pkgDir, 0o750)).To(Succeed())
	Expect(os.WriteFile(filepath.Join(pkgDir, source.ManifestName), []byte(manifest), 0o600)).To(Succeed())
	for name, content := range files {
		Expect(os.WriteFile(filepath.Join(pkgDir, name), []byte(content), 0o600)).To(Succeed())
	}
}

func removePackage(root, dir string) {
	Expect(os.RemoveAll(filepath.Join(root, dir))).To(Succeed())
}
