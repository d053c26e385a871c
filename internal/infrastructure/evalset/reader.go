// Package evalset reads labelled retrieval questions from JSONL.
package evalset

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/kirillkom/groundedqa/internal/core/domain"
)

// goldKeys are tried in order; the first non-empty one wins.
var goldKeys = []string{"relevant_urls", "gold_urls", "relevant_url", "relevant"}

func Read(ctx context.Context, path string) ([]domain.EvalItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrLoad, "open eval set", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var items []domain.EvalItem
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var fields map[string]any
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return nil, domain.WrapError(domain.ErrLoad, "parse eval set", fmt.Errorf("line %d: %w", line, err))
		}

		id := firstString(fields, "id", "qid")
		if id == "" {
			id = fmt.Sprintf("line-%d", line)
		}
		items = append(items, domain.EvalItem{
			ID:           id,
			Question:     strings.TrimSpace(firstString(fields, "question", "query")),
			RelevantURLs: goldURLs(fields),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrLoad, "scan eval set", err)
	}
	return items, nil
}

func goldURLs(fields map[string]any) []string {
	for _, key := range goldKeys {
		if urls := dedupe(stringList(fields[key])); len(urls) > 0 {
			return urls
		}
	}
	// relevant_ids sometimes carries urls instead of chunk ids.
	var urls []string
	for _, id := range stringList(fields["relevant_ids"]) {
		if looksLikeURL(id) {
			urls = append(urls, id)
		}
	}
	return dedupe(urls)
}

func stringList(v any) []string {
	switch value := v.(type) {
	case string:
		if s := strings.TrimSpace(value); s != "" {
			return []string{s}
		}
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}
	return nil
}

func firstString(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		switch value := fields[key].(type) {
		case string:
			if value != "" {
				return value
			}
		case float64:
			return fmt.Sprintf("%.0f", value)
		}
	}
	return ""
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
