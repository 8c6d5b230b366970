package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/bilingual"
)

// bindOrdering parses the "ordering" query param: comma separated fields, "-" prefixed for descending order.
func bindOrdering(ctx echo.Context) []core.DBOrdering {
	var orderings []core.DBOrdering
	for _, field := range strings.Split(ctx.QueryParam("ordering"), ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		desc := strings.HasPrefix(field, "-")
		orderings = append(orderings, core.DBOrdering{Field: strings.TrimPrefix(field, "-"), Ascending: !desc})
	}
	return orderings
}

// bindLocale reads the display locale from the "locale" query param, then from Accept-Language.
func bindLocale(ctx echo.Context, fallback bilingual.Language) bilingual.Language {
	if l := ctx.QueryParam("locale"); l != "" {
		return bilingual.ParseLocale(l, fallback)
	}
	header := ctx.Request().Header.Get("Accept-Language")
	for _, part := range strings.Split(header, ",") {
		tag := strings.SplitN(strings.TrimSpace(part), ";", 2)[0]
		tag = strings.SplitN(tag, "-", 2)[0]
		if l := bilingual.Language(strings.ToLower(tag)); l.IsLocale() {
			return l
		}
	}
	return fallback
}
