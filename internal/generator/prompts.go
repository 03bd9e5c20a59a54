package generator

import (
	"fmt"
	"strings"

	"github.com/BrunoBianchi/Portyo-sub004/internal/schedule"
)

const summarySystemPrompt = `You are a content strategist. Given an account's content preferences, produce a JSON object with this exact shape:
{"summary": string, "industry": string, "expertise": [string], "tone": string, "target_audience": string, "content_pillars": [string]}
Respond with JSON only.`

const generateSystemPrompt = `You are an expert blog writer and SEO specialist. Produce a complete, publication-ready blog post as a JSON object with this exact shape:
{"title": string, "content": string (markdown), "keywords": string (comma-separated), "meta_description": string (max 160 chars), "scores": {"seo": int, "readability": int, "originality": int, "engagement": int, "word_count": int}, "suggestions": [string]}
Scores are 0-100 self-assessments. Suggestions are 2-4 concrete improvements for the next post. Respond with JSON only.`

func buildSummaryPrompt(cfg schedule.ContentConfig) string {
	var b strings.Builder
	b.WriteString("Account content preferences:\n")
	writeField(&b, "Topics", cfg.Topics)
	writeField(&b, "Keywords", cfg.Keywords)
	writeField(&b, "Target audience", cfg.TargetAudience)
	writeField(&b, "Tone", cfg.Tone)
	writeField(&b, "Target country", cfg.TargetCountry)
	if len(cfg.Categories) > 0 {
		writeField(&b, "Categories", strings.Join(cfg.Categories, ", "))
	}
	b.WriteString("\nSummarize what this account publishes about and for whom.")
	return b.String()
}

func buildGeneratePrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Write a blog post for this account.\n\nAccount summary:\n")
	if req.Summary != "" {
		b.WriteString(req.Summary)
	} else {
		b.WriteString("(none)")
	}
	b.WriteString("\n\nPreferences:\n")
	writeField(&b, "Topics", req.Config.Topics)
	writeField(&b, "Keywords", req.Config.Keywords)
	writeField(&b, "Target audience", req.Config.TargetAudience)
	writeField(&b, "Tone", req.Config.Tone)
	writeField(&b, "Length", postLengthHint(req.Config.PostLength))
	writeField(&b, "Language", req.Config.Language)
	writeField(&b, "Target country", req.Config.TargetCountry)

	if f := req.Feedback; f != nil {
		b.WriteString("\nPrevious post feedback:\n")
		writeField(&b, "Previous title (do not repeat this topic)", f.PreviousTitle)
		fmt.Fprintf(&b, "- Previous scores: seo=%d readability=%d originality=%d engagement=%d\n",
			f.Scores.SEO, f.Scores.Readability, f.Scores.Originality, f.Scores.Engagement)
		for _, s := range f.Suggestions {
			fmt.Fprintf(&b, "- Apply: %s\n", s)
		}
	}
	return b.String()
}

func postLengthHint(length string) string {
	switch length {
	case "short":
		return "short, 500-800 words"
	case "long":
		return "long-form, 1500-2500 words"
	default:
		return "medium, 800-1500 words"
	}
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, value)
}
