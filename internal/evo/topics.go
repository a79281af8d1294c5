package evo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"personagen/internal/llm"
)

// FallbackTopics is the static topic list used when backend topic
// generation fails.
var FallbackTopics = []string{
	"AI Technology", "Climate Change", "Mental Health",
	"Space Exploration", "Food Culture", "Music and Art",
	"Education Reform", "Social Media Impact", "Remote Work",
	"Gaming Culture", "Science and Innovation", "Philosophy",
	"Entrepreneurship", "Digital Privacy", "Urban Living",
}

// GenerateTopics asks the backend for count distinct trending discussion
// topics. Any failure falls back to the static list.
func GenerateTopics(ctx context.Context, client llm.Client, count int, log zerolog.Logger) []string {
	if count <= 0 {
		count = 5
	}
	if client == nil {
		return append([]string(nil), FallbackTopics...)
	}
	prompt := fmt.Sprintf(
		"Generate exactly %d diverse, specific trending discussion topics "+
			"that people might debate on social media right now. "+
			"Cover different domains (tech, culture, science, politics, lifestyle, etc.). "+
			"Return ONLY a JSON array of strings, e.g. [\"topic1\", \"topic2\", ...]. "+
			"No markdown, no explanation.",
		count)
	response, err := client.Generate(ctx, llm.Request{
		System:      "You are a social media trend analyst.",
		User:        prompt,
		Temperature: 0.9,
	})
	if err != nil || response == "" {
		log.Warn().Err(err).Msg("topic generation failed, using fallback topics")
		return append([]string(nil), FallbackTopics...)
	}
	var topics []string
	if err := json.Unmarshal([]byte(llm.StripFences(response)), &topics); err != nil || len(topics) == 0 {
		log.Warn().Err(err).Msg("topic response unparseable, using fallback topics")
		return append([]string(nil), FallbackTopics...)
	}
	return topics
}
