package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"personagen/internal/llm"
	"personagen/internal/model"
)

var characterLine = regexp.MustCompile(`\*\*Your Character: (.+)\*\*`)

// stubClient answers deterministically based on the prompt shape, echoing
// the persona name extracted from the system prompt.
type stubClient struct {
	engage string
	err    error
}

func (c *stubClient) Generate(ctx context.Context, req llm.Request) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	name := "someone"
	if m := characterLine.FindStringSubmatch(req.System); m != nil {
		name = m[1]
	}
	switch {
	case strings.Contains(req.User, "Would you reply"):
		return c.engage, nil
	case strings.Contains(req.User, "Brainstorm"):
		return `["one idea"]`, nil
	case strings.Contains(req.User, "final post text"):
		return "post by " + name, nil
	case strings.Contains(req.User, "final reply text"):
		return "reply by " + name, nil
	default:
		return "", fmt.Errorf("unexpected prompt: %s", req.User)
	}
}

func testAgents(t *testing.T, client llm.Client, names ...string) []*Agent {
	t.Helper()
	agents := make([]*Agent, 0, len(names))
	for _, name := range names {
		g := model.Genotype{Name: name, Attributes: map[string]model.Value{
			model.AttrOccupation: model.String("tester"),
		}}
		agents = append(agents, NewAgent(g, client, zerolog.Nop()))
	}
	return agents
}

func TestEpisodeAllEngage(t *testing.T) {
	agents := testAgents(t, &stubClient{engage: "yes"}, "a", "b", "c")
	rng := rand.New(rand.NewSource(1))
	tr := RunEpisode(context.Background(), rng, agents, "topic", 2)

	posts, replies, passes := countEvents(tr)
	if posts != 3 {
		t.Fatalf("expected 3 posts, got %d", posts)
	}
	if replies != 6 || passes != 0 {
		t.Fatalf("all-yes run should produce 6 replies and no passes, got %d/%d", replies, passes)
	}
	for i, e := range tr[:3] {
		if e.Type != model.EventPost || e.Author != agents[i].Name() {
			t.Fatalf("phase 1 events must follow population order, got %+v at %d", e, i)
		}
	}
	checkTranscriptIntegrity(t, tr)
}

func TestEpisodeAllPass(t *testing.T) {
	agents := testAgents(t, &stubClient{engage: "no"}, "a", "b", "c", "d")
	rng := rand.New(rand.NewSource(2))
	tr := RunEpisode(context.Background(), rng, agents, "topic", 3)

	posts, replies, passes := countEvents(tr)
	if posts != 4 || replies != 0 || passes != 12 {
		t.Fatalf("all-no run: got posts=%d replies=%d passes=%d", posts, replies, passes)
	}
	for _, e := range tr {
		if e.Type == model.EventPass && e.TargetAuthor == "" {
			t.Fatal("pass events must carry a target author")
		}
	}
}

func TestEpisodeAmbiguousAnswerIsNo(t *testing.T) {
	agents := testAgents(t, &stubClient{engage: "maybe, who knows"}, "a", "b")
	rng := rand.New(rand.NewSource(3))
	tr := RunEpisode(context.Background(), rng, agents, "topic", 1)
	_, replies, passes := countEvents(tr)
	if replies != 0 || passes != 2 {
		t.Fatalf("unclear answers should count as no, got replies=%d passes=%d", replies, passes)
	}
}

func TestEpisodeBackendFailureDegrades(t *testing.T) {
	agents := testAgents(t, &stubClient{err: errors.New("down")}, "a", "b")
	rng := rand.New(rand.NewSource(4))
	tr := RunEpisode(context.Background(), rng, agents, "topic", 1)

	for _, e := range tr {
		if e.Type == model.EventPost {
			if !e.Degraded || !strings.Contains(e.Content, "is thinking") {
				t.Fatalf("failed post should be a degraded placeholder, got %+v", e)
			}
		}
	}
	// engage defaults to yes when the backend is down, so replies appear
	// with placeholder content
	_, replies, _ := countEvents(tr)
	if replies != 2 {
		t.Fatalf("expected degraded replies, got %d", replies)
	}
	if agents[0].DegradedCalls() == 0 {
		t.Fatal("degraded calls should be counted")
	}
}

func TestEpisodeDeterministicWithFixedSeed(t *testing.T) {
	run := func() model.Transcript {
		agents := testAgents(t, &stubClient{engage: "yes"}, "a", "b", "c")
		return RunEpisode(context.Background(), rand.New(rand.NewSource(7)), agents, "topic", 2)
	}
	first := run()
	second := run()
	if len(first) != len(second) {
		t.Fatalf("transcripts differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("transcripts diverge at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func countEvents(tr model.Transcript) (posts, replies, passes int) {
	for _, e := range tr {
		switch e.Type {
		case model.EventPost:
			posts++
		case model.EventReply:
			replies++
		case model.EventPass:
			passes++
		}
	}
	return
}

func checkTranscriptIntegrity(t *testing.T, tr model.Transcript) {
	t.Helper()
	seen := map[string]bool{}
	for _, e := range tr {
		if e.Type == model.EventReply && !seen[e.TargetAuthor] {
			t.Fatalf("reply targets %s before they authored anything", e.TargetAuthor)
		}
		if e.Type != model.EventPass {
			seen[e.Author] = true
		}
	}
}
