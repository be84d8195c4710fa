package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestEvents(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Events Module Suite")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var _ = Describe("EventBus", func() {
	var bus *EventBus

	BeforeEach(func() {
		bus = NewEventBus(discardLogger())
	})

	It("runs sync handlers in subscription order", func() {
		var order []int
		bus.Subscribe(EventTypeSessionCleared, func(ctx context.Context, e Event) error {
			order = append(order, 1)
			return nil
		})
		bus.Subscribe(EventTypeSessionCleared, func(ctx context.Context, e Event) error {
			order = append(order, 2)
			return nil
		})

		Expect(bus.PublishSync(context.Background(), NewSessionClearedEvent())).To(Succeed())
		Expect(order).To(Equal([]int{1, 2}))
	})

	It("surfaces sync handler failures", func() {
		bus.Subscribe(EventTypeLoginFailed, func(ctx context.Context, e Event) error {
			return errors.New("display broken")
		})

		err := bus.PublishSync(context.Background(), NewLoginFailedEvent("persistence"))
		Expect(err).To(HaveOccurred())
	})

	It("ignores events nobody listens to", func() {
		Expect(bus.PublishSync(context.Background(), NewSessionClearedEvent())).To(Succeed())
		Expect(bus.Publish(context.Background(), NewSessionClearedEvent())).To(Succeed())
	})

	It("only reaches handlers of the published type", func() {
		var hits int
		bus.Subscribe(EventTypeSessionDefined, func(ctx context.Context, e Event) error {
			hits++
			return nil
		})

		Expect(bus.PublishSync(context.Background(), NewSessionClearedEvent())).To(Succeed())
		Expect(hits).To(BeZero())
	})

	It("carries the notice payload through", func() {
		var got Event
		bus.Subscribe(EventTypePasswordChangeRequired, func(ctx context.Context, e Event) error {
			got = e
			return nil
		})

		Expect(bus.PublishSync(context.Background(), NewPasswordChangeRequiredEvent("/users"))).To(Succeed())

		notice, ok := got.(*PasswordChangeRequiredEvent)
		Expect(ok).To(BeTrue())
		Expect(notice.Path).To(Equal("/users"))
		Expect(notice.EventID()).NotTo(BeEmpty())
	})
})
