package views

import (
	"context"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	appI18n "github.com/cikmis/examclient/internal/i18n"
	"github.com/cikmis/examclient/internal/model"
)

func t(ctx context.Context, id string) string { return appI18n.T(ctx, id) }

func td(ctx context.Context, id string, data map[string]any) string {
	return appI18n.Td(ctx, id, data)
}

// href prefixes p with the deployment base path.
func href(ctx context.Context, p string) templ.SafeURL {
	return templ.URL(model.BasePathFromContext(ctx) + p)
}

func withQuery(p string, q url.Values) string {
	if len(q) == 0 {
		return p
	}
	return p + "?" + q.Encode()
}

func pageTitle(ctx context.Context, title string) string {
	if title == "" {
		return t(ctx, "AppTitle")
	}
	return title + " - " + t(ctx, "AppTitle")
}

func itoa64(n int64) string { return strconv.FormatInt(n, 10) }
