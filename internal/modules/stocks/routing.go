package stocks

import (
	"strings"

	"github.com/aristath/stockwatch/internal/domain"
)

// Route picks the provider for a symbol from its suffix alone
func Route(symbol string) domain.ProviderKind {
	s := domain.NormalizeSymbol(symbol)
	if strings.HasSuffix(s, domain.RegionalSuffix) || strings.HasSuffix(s, domain.RegionalShortSuffix) {
		return domain.ProviderRegional
	}
	return domain.ProviderGlobal
}

// partitionByProvider groups symbols by route, preserving input order
func partitionByProvider(symbols []string) map[domain.ProviderKind][]string {
	parts := make(map[domain.ProviderKind][]string)
	for _, s := range symbols {
		kind := Route(s)
		parts[kind] = append(parts[kind], s)
	}
	return parts
}
