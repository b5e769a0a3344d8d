/*
Package funnel is a navigation state machine for marketing-funnel
questionnaires: one question at a time, recorded answers, fixed
interstitial screens between specific transitions, backward navigation,
and an exactly-once completion trigger (webhook notification + redirect).

The engine follows a Hexagonal Architecture: the core machine in
internal/runtime is pure and synchronous, while catalogs, persistence
and outbound transports are adapters behind the interfaces in pkg/ports.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/funnelworks/funnel"
		"github.com/funnelworks/funnel/pkg/adapters/memory"
		"github.com/funnelworks/funnel/pkg/adapters/yamlcatalog"
	)

	func main() {
		ctx := context.Background()

		eng, err := funnel.New(ctx, yamlcatalog.New("funnel.yaml"), memory.NewStore())
		if err != nil {
			log.Fatal(err)
		}
		defer eng.Close()

		view, err := eng.StartSession(ctx, "session-123")
		if err != nil {
			log.Fatal(err)
		}

		// Intent loop: record the answer, then navigate.
		if view.Question != nil {
			_, _ = eng.RecordAnswer(ctx, "session-123", view.Question.ID, "growth")
			view, _ = eng.Advance(ctx, "session-123")
		}
	}

Views emitted by the engine carry everything a stateless renderer needs:
the current stage, the active question with any pre-filled answer, the
interstitial kind, back-navigation availability, and progress.
*/
package funnel
