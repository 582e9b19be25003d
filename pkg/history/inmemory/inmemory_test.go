package inmemory_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/parleylabs/parley/pkg/history"
	"github.com/parleylabs/parley/pkg/history/inmemory"
)

func TestInmemory(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Inmemory History Suite")
}

var _ = Describe("Store", func() {
	var (
		store *inmemory.Store
		ctx   context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewStore()
	})

	Describe("CreateSession", func() {
		It("stores a session", func() {
			session := history.NewSession("first chat")
			Expect(store.CreateSession(ctx, session)).To(Succeed())
			Expect(store.Count()).To(Equal(1))
		})

		It("rejects duplicate session IDs", func() {
			session := history.NewSession("first chat")
			Expect(store.CreateSession(ctx, session)).To(Succeed())
			Expect(store.CreateSession(ctx, session)).To(MatchError(ContainSubstring("already exists")))
		})

		It("rejects nil sessions", func() {
			Expect(store.CreateSession(ctx, nil)).To(MatchError(ContainSubstring("nil session")))
		})

		It("rejects sessions without an ID", func() {
			Expect(store.CreateSession(ctx, &history.Session{Title: "no id"})).To(HaveOccurred())
		})
	})

	Describe("AppendMessage and Messages", func() {
		var session *history.Session

		BeforeEach(func() {
			session = history.NewSession("chat")
			Expect(store.CreateSession(ctx, session)).To(Succeed())
		})

		It("appends messages in order and assigns IDs", func() {
			first := &history.Message{SessionID: session.ID, Role: "user", Content: "hello"}
			second := &history.Message{SessionID: session.ID, Role: "assistant", Content: "Echo: hello"}

			Expect(store.AppendMessage(ctx, first)).To(Succeed())
			Expect(store.AppendMessage(ctx, second)).To(Succeed())
			Expect(first.ID).To(BeNumerically("<", second.ID))

			msgs, err := store.Messages(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].Role).To(Equal("user"))
			Expect(msgs[0].Content).To(Equal("hello"))
			Expect(msgs[1].Role).To(Equal("assistant"))
			Expect(msgs[1].Content).To(Equal("Echo: hello"))
		})

		It("returns NotFoundError for an unknown session", func() {
			msg := &history.Message{SessionID: "nonexistent", Role: "user", Content: "hi"}
			err := store.AppendMessage(ctx, msg)
			Expect(err).To(BeAssignableToTypeOf(history.NotFoundError{}))

			_, err = store.Messages(ctx, "nonexistent")
			Expect(err).To(BeAssignableToTypeOf(history.NotFoundError{}))
		})

		It("rejects nil messages", func() {
			Expect(store.AppendMessage(ctx, nil)).To(MatchError(ContainSubstring("nil message")))
		})

		It("returns an empty slice for a session with no messages", func() {
			msgs, err := store.Messages(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs).To(BeEmpty())
		})
	})

	Describe("Sessions", func() {
		It("returns sessions newest first", func() {
			older := &history.Session{ID: "older", Title: "old", CreatedAt: time.Now().UTC().Add(-time.Hour)}
			newer := &history.Session{ID: "newer", Title: "new", CreatedAt: time.Now().UTC()}

			Expect(store.CreateSession(ctx, older)).To(Succeed())
			Expect(store.CreateSession(ctx, newer)).To(Succeed())

			sessions, err := store.Sessions(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions).To(HaveLen(2))
			Expect(sessions[0].ID).To(Equal("newer"))
			Expect(sessions[1].ID).To(Equal("older"))
		})

		It("returns an empty slice for an empty store", func() {
			sessions, err := store.Sessions(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions).To(BeEmpty())
		})
	})
})
