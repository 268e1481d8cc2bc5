// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hookmux Contributors

//go:build integration

package mux_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/hookmux/hookmux/internal/extension"
	"github.com/hookmux/hookmux/internal/mux"
	"github.com/hookmux/hookmux/internal/source"
)

const markdownManifest = `
name: markdown-tools
version: 1.0.0
extensions:
  - hook: render
    name: markdown
    entry: render.tmpl
`

const brokenManifest = `
name: broken-tools
version: 1.0.0
extensions:
  - hook: render
    name: broken
    entry: gone.tmpl
`

var _ = Describe("Watching a hook over a package directory", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		root   string
		m      *mux.Mux
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		root = GinkgoT().TempDir()
		src := source.NewDir(root, source.WithPollInterval(20*time.Millisecond))
		m = mux.New(src)
	})

	AfterEach(func() {
		m.StopWatching()
		cancel()
	})

	It("emits the initial resolution and re-emits on package changes", func() {
		writePackage(root, "a-markdown", markdownManifest, map[string]string{"render.tmpl": "R1"})

		updates := m.Watch(ctx, "render")

		var up mux.HookUpdate
		Eventually(updates, 2*time.Second).Should(Receive(&up))
		Expect(up.Err).NotTo(HaveOccurred())
		Expect(up.Extensions).To(HaveLen(1))
		Expect(extension.IsLoaded(up.Extensions[0])).To(BeTrue())
		Expect(up.Extensions[0].Value()).To(Equal("R1"))

		// A second package with a missing entry file joins: the next emission
		// carries both extensions, the broken one isolated as Errored.
		writePackage(root, "b-broken", brokenManifest, nil)

		Eventually(func() int {
			select {
			case up = <-updates:
			default:
			}
			return len(up.Extensions)
		}, 2*time.Second).Should(Equal(2))

		Expect(extension.IsLoaded(up.Extensions[0])).To(BeTrue())
		Expect(up.Extensions[0].Value()).To(Equal("R1"))
		Expect(extension.IsErrored(up.Extensions[1])).To(BeTrue())
		Expect(up.Extensions[1].Err()).To(HaveOccurred())
	})

	It("replays the latest resolution to a late joiner", func() {
		writePackage(root, "a-markdown", markdownManifest, map[string]string{"render.tmpl": "R1"})

		first := m.Watch(ctx, "render")
		var up mux.HookUpdate
		Eventually(first, 2*time.Second).Should(Receive(&up))
		Expect(up.Extensions).To(HaveLen(1))

		late := m.Watch(ctx, "render")
		Eventually(late, 2*time.Second).Should(Receive(&up))
		Expect(up.Extensions).To(HaveLen(1))
		Expect(up.Extensions[0].Value()).To(Equal("R1"))
	})

	It("re-emits when a package is removed", func() {
		writePackage(root, "a-markdown", markdownManifest, map[string]string{"render.tmpl": "R1"})
		writePackage(root, "b-broken", brokenManifest, nil)

		updates := m.Watch(ctx, "render")

		lastLen := -1
		observe := func() int {
			select {
			case up, ok := <-updates:
				if ok {
					lastLen = len(up.Extensions)
				}
			default:
			}
			return lastLen
		}

		Eventually(observe, 2*time.Second).Should(Equal(2))

		removePackage(root, "b-broken")

		Eventually(observe, 2*time.Second).Should(Equal(1))
	})

	It("streams package metadata over the same shared session", func() {
		writePackage(root, "a-markdown", markdownManifest, map[string]string{"render.tmpl": "R1"})

		hooks := m.Watch(ctx, "render")
		Eventually(hooks, 2*time.Second).Should(Receive())

		var up mux.PackagesUpdate
		Eventually(m.Packages(ctx), 2*time.Second).Should(Receive(&up))
		Expect(up.Err).NotTo(HaveOccurred())
		Expect(up.Packages).To(HaveLen(1))
		Expect(up.Packages[0].ID).To(Equal("a-markdown"))
		Expect(up.Packages[0].Name).To(Equal("markdown-tools"))
	})

	It("completes all streams on StopWatching and starts fresh afterwards", func() {
		writePackage(root, "a-markdown", markdownManifest, map[string]string{"render.tmpl": "R1"})

		updates := m.Watch(ctx, "render")
		Eventually(updates, 2*time.Second).Should(Receive())
		Expect(m.IsWatching()).To(BeTrue())

		m.StopWatching()
		Eventually(updates, 2*time.Second).Should(BeClosed())
		Expect(m.IsWatching()).To(BeFalse())

		// A new consumer establishes a fresh session.
		fresh := m.Watch(ctx, "render")
		var up mux.HookUpdate
		Eventually(fresh, 2*time.Second).Should(Receive(&up))
		Expect(up.Extensions).To(HaveLen(1))
		Expect(m.IsWatching()).To(BeTrue())
	})

	It("resolves one-shot loads without establishing a session", func() {
		writePackage(root, "a-markdown", markdownManifest, map[string]string{"render.tmpl": "R1"})

		exts, err := m.Load(ctx, "render")
		Expect(err).NotTo(HaveOccurred())
		Expect(exts).To(HaveLen(1))
		Expect(m.IsWatching()).To(BeFalse())

		exts, err = m.Load(ctx, "unknown-hook")
		Expect(err).NotTo(HaveOccurred())
		Expect(exts).To(BeEmpty())
	})
})
