package ui

import (
	"context"
	"strings"

	"github.com/example/storefront/internal/domain"
)

// RegionLister — источник списка регионов.
type RegionLister interface {
	ListRegions(ctx context.Context) ([]domain.Region, error)
}

// RegionSelector — выбор региона. Код региона — первый сегмент пути URL.
type RegionSelector struct {
	regions []domain.Region
	current string
}

// LoadRegionSelector загружает регионы и определяет текущий по пути.
// Если путь не начинается с известного региона, выбирается первый регион и
// возвращается путь с префиксом, которым нужно заменить текущий.
func LoadRegionSelector(ctx context.Context, lister RegionLister, path string) (*RegionSelector, string, error) {
	regions, err := lister.ListRegions(ctx)
	if err != nil {
		return nil, "", err
	}
	rs := &RegionSelector{regions: regions}

	if code := firstSegment(path); rs.known(code) {
		rs.current = code
		return rs, "", nil
	}
	if len(regions) == 0 {
		return rs, "", nil
	}
	rs.current = regions[0].Code()
	return rs, "/" + rs.current + ensureLeadingSlash(path), nil
}

func (rs *RegionSelector) Current() string { return rs.current }

// CurrentRegion — выбранный регион.
func (rs *RegionSelector) CurrentRegion() (domain.Region, bool) {
	for _, r := range rs.regions {
		if r.Code() == rs.current {
			return r, true
		}
	}
	return domain.Region{}, false
}

// Change возвращает путь для перехода в регион code: сегмент региона
// заменяется, а если его нет — вставляется.
func (rs *RegionSelector) Change(code, path string) (string, error) {
	code = strings.ToLower(code)
	if !rs.known(code) {
		return "", domain.ValidationErrorf("unknown region %q", code)
	}
	parts := strings.Split(ensureLeadingSlash(path), "/")
	if len(parts) > 1 && rs.known(parts[1]) {
		parts[1] = code
	} else {
		parts = append([]string{"", code}, parts[1:]...)
	}
	return strings.Join(parts, "/"), nil
}

func (rs *RegionSelector) known(code string) bool {
	if code == "" {
		return false
	}
	for _, r := range rs.regions {
		if r.Code() == code {
			return true
		}
	}
	return false
}

type RegionOption struct {
	Code     string
	Label    string
	Selected bool
}

type RegionSelectorView struct {
	Options []RegionOption
	Current string
}

func (rs *RegionSelector) View() RegionSelectorView {
	view := RegionSelectorView{Current: rs.current}
	for _, r := range rs.regions {
		view.Options = append(view.Options, RegionOption{
			Code:     r.Code(),
			Label:    r.Name + " (" + r.CurrencyCode + ")",
			Selected: r.Code() == rs.current,
		})
	}
	return view
}

func firstSegment(path string) string {
	parts := strings.Split(ensureLeadingSlash(path), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func ensureLeadingSlash(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}
