package sim

import (
	"context"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"personagen/internal/model"
)

type feedEntry struct {
	author  string
	content string
}

// RunEpisode plays one group episode: every agent posts on the topic, then
// engage rounds let agents reply to feed entries. The feed is created empty
// here and discarded on return; episodes never share feeds.
//
// Phase 1 posts run concurrently but land in the transcript in population
// order. Phase 2 is sequential because every reply extends the feed that
// later engage decisions read.
func RunEpisode(ctx context.Context, rng *rand.Rand, agents []*Agent, topic string, rounds int) model.Transcript {
	var transcript model.Transcript
	feed := make([]feedEntry, 0, len(agents))

	type postResult struct {
		content  string
		degraded bool
	}
	posts := make([]postResult, len(agents))
	g, gctx := errgroup.WithContext(ctx)
	for i, agent := range agents {
		g.Go(func() error {
			content, degraded := agent.GeneratePost(gctx, topic)
			posts[i] = postResult{content: content, degraded: degraded}
			return nil
		})
	}
	g.Wait()

	for i, agent := range agents {
		transcript = append(transcript, model.Event{
			Type:     model.EventPost,
			Author:   agent.Name(),
			Content:  posts[i].content,
			Degraded: posts[i].degraded,
		})
		feed = append(feed, feedEntry{author: agent.Name(), content: posts[i].content})
	}

	for round := 0; round < rounds; round++ {
		if len(feed) == 0 {
			break
		}
		order := rng.Perm(len(agents))
		for _, idx := range order {
			agent := agents[idx]
			target, ok := pickTarget(rng, feed, agent.Name())
			if !ok {
				continue
			}
			engage, engageDegraded := agent.ShouldEngage(ctx, target.author, target.content)
			if !engage {
				transcript = append(transcript, model.Event{
					Type:         model.EventPass,
					Author:       agent.Name(),
					TargetAuthor: target.author,
					Degraded:     engageDegraded,
				})
				continue
			}
			reply, replyDegraded := agent.GenerateReply(ctx, target.author, target.content)
			transcript = append(transcript, model.Event{
				Type:         model.EventReply,
				Author:       agent.Name(),
				TargetAuthor: target.author,
				Content:      reply,
				ReplyTo:      target.content,
				Degraded:     engageDegraded || replyDegraded,
			})
			feed = append(feed, feedEntry{author: agent.Name(), content: reply})
		}
	}
	return transcript
}

// pickTarget draws a uniform feed entry not authored by name.
func pickTarget(rng *rand.Rand, feed []feedEntry, name string) (feedEntry, bool) {
	candidates := make([]feedEntry, 0, len(feed))
	for _, e := range feed {
		if e.author != name {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return feedEntry{}, false
	}
	return candidates[rng.Intn(len(candidates))], true
}
