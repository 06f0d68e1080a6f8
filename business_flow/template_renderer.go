package businessflow

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/amirphl/Injera-Promo/repository"
)

var templateTokenRe = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Render substitutes every {token} in body with the variable whose key matches the
// token case-insensitively. Tokens without a variable are kept verbatim.
func Render(body string, vars map[string]string) string {
	if body == "" || len(vars) == 0 {
		return body
	}

	lookup := make(map[string]string, len(vars))
	for k, v := range vars {
		lookup[strings.ToLower(k)] = v
	}

	return templateTokenRe.ReplaceAllStringFunc(body, func(match string) string {
		token := strings.ToLower(match[1 : len(match)-1])
		if v, ok := lookup[token]; ok {
			return v
		}
		return match
	})
}

// TemplateRenderer resolves stored template bodies
type TemplateRenderer interface {
	ResolveBody(ctx context.Context, key, fallbackBody string) (string, error)
}

// TemplateRendererImpl resolves template bodies from SmsTemplateRepository
type TemplateRendererImpl struct {
	templateRepo repository.SmsTemplateRepository
}

// NewTemplateRenderer creates a new template renderer
func NewTemplateRenderer(templateRepo repository.SmsTemplateRepository) TemplateRenderer {
	return &TemplateRendererImpl{templateRepo: templateRepo}
}

// ResolveBody returns the body of the active template stored under key, or fallbackBody
// when key is blank or the template is missing or inactive.
func (r *TemplateRendererImpl) ResolveBody(ctx context.Context, key, fallbackBody string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return fallbackBody, nil
	}
	tpl, err := r.templateRepo.ByKey(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to load template %q: %w", key, err)
	}
	if !tpl.Active() {
		return fallbackBody, nil
	}
	return tpl.Body, nil
}
