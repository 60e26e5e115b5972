package extract

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/klappy/translation-helps-core/errors"
)

const frontMatterFence = "---"

// ParseMarkdown splits an article into YAML front matter and body. The
// title comes from the front matter's "title" field, falling back to the
// first heading in the body.
func ParseMarkdown(data []byte) (*Article, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")

	article := &Article{Body: text}
	if body, metaBlock, ok := splitFrontMatter(text); ok {
		meta := make(map[string]any)
		if err := yaml.Unmarshal([]byte(metaBlock), &meta); err != nil {
			return nil, errors.WrapInvalid(err, "extract", "ParseMarkdown", "parse front matter")
		}
		article.Body = body
		article.Meta = make(map[string]string, len(meta))
		for key, value := range meta {
			article.Meta[key] = fmt.Sprint(value)
		}
		if title, ok := article.Meta["title"]; ok {
			article.Title = title
		}
	}

	if article.Title == "" {
		article.Title = firstHeading(article.Body)
	}
	return article, nil
}

// splitFrontMatter detaches a leading fenced YAML block. Reports false when
// the document has no front matter.
func splitFrontMatter(text string) (body, meta string, ok bool) {
	if !strings.HasPrefix(text, frontMatterFence+"\n") {
		return "", "", false
	}

	rest := text[len(frontMatterFence)+1:]
	idx := strings.Index(rest, "\n"+frontMatterFence)
	if idx < 0 {
		return "", "", false
	}

	meta = rest[:idx]
	body = rest[idx+1+len(frontMatterFence):]
	body = strings.TrimPrefix(body, "\n")
	return body, meta, true
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		}
	}
	return ""
}
