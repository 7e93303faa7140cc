package usecase

import (
	"fmt"

	"github.com/Jenny-Gump/content-generator/internal/domain"
)

// Stage names double as output sub-directories for the LLM audit trail.
const (
	stageExtract   = "extract_prompts"
	stageGenerate  = "generate_article"
	stageEditorial = "editorial_review"
)

const extractSystemPrompt = `You are a research assistant that extracts reusable AI prompts and prompt techniques from articles.
Return STRICT JSON only, no commentary. The JSON must be an array of objects, each with:
  "title": short name of the prompt or technique,
  "prompt": the prompt text itself, verbatim or faithfully reconstructed,
  "description": one or two sentences on what it is for and when to use it.
If the article contains no usable prompts, return an empty array [].`

const extractUserPrompt = `Topic of interest: %s

Article content (cleaned markdown):
---
%s
---

Extract every distinct prompt or prompt technique relevant to the topic. JSON array only.`

const generateSystemPrompt = `You are a professional content writer producing publication-ready WordPress articles.
Return STRICT JSON only with exactly these fields:
  "title": article headline,
  "content": full article body in HTML (h2/h3 sections, p paragraphs, ul/ol lists; no inline styles),
  "excerpt": 1-2 sentence summary,
  "slug": url-friendly slug in lowercase latin letters and hyphens,
  "_yoast_wpseo_title": SEO title up to 60 characters,
  "_yoast_wpseo_metadesc": meta description up to 155 characters,
  "focus_keyword": single primary keyword phrase,
  "image_caption": caption for a header image.
Write in an expert but accessible tone. Every prompt you include must appear inside a <pre> block.`

const generateUserPrompt = `Write a complete article on the topic: %s

Use the following extracted material as the factual backbone. Do not invent prompts that are not in the material; you may rephrase descriptions and add connective prose, structure and practical advice.

Extracted material (JSON):
%s

JSON object only, with the exact fields listed in the system message.`

const editorialSystemPrompt = `You are a senior editor reviewing an article before publication.
Improve clarity, flow, grammar and structure. Keep all factual content and all <pre> prompt blocks intact.
Return STRICT JSON with the same fields as the input document and no others.`

const editorialUserPrompt = `Review and improve this article document:

%s

Return the full corrected document as a JSON object with identical fields.`

// articleFields lists what the generation stage must produce; the parser
// reports any of these missing after recovery.
var articleFields = []string{
	"title", "content", "excerpt", "slug",
	"_yoast_wpseo_title", "_yoast_wpseo_metadesc", "focus_keyword",
}

func extractMessages(topic, content string) []domain.Message {
	return []domain.Message{
		{Role: domain.RoleSystem, Content: extractSystemPrompt},
		{Role: domain.RoleUser, Content: fmt.Sprintf(extractUserPrompt, topic, content)},
	}
}

func generateMessages(topic, materialJSON string) []domain.Message {
	return []domain.Message{
		{Role: domain.RoleSystem, Content: generateSystemPrompt},
		{Role: domain.RoleUser, Content: fmt.Sprintf(generateUserPrompt, topic, materialJSON)},
	}
}

func editorialMessages(articleJSON string) []domain.Message {
	return []domain.Message{
		{Role: domain.RoleSystem, Content: editorialSystemPrompt},
		{Role: domain.RoleUser, Content: fmt.Sprintf(editorialUserPrompt, articleJSON)},
	}
}
