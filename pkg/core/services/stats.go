package services

import (
	"sort"

	"github.com/wadjakorntonsri/go-link-store/pkg/core/domain"
)

// ComputeStatistics counts read and unread links and ranks domains by
// frequency. Domains with equal counts keep the order they were first seen in.
func ComputeStatistics(links []domain.Link, topK int) domain.Statistics {
	stats := domain.Statistics{TopDomains: []domain.DomainCount{}}

	counts := make(map[string]int)
	var ranked []domain.DomainCount
	for _, l := range links {
		stats.Total++
		if l.IsRead {
			stats.Read++
		}

		i, seen := counts[l.Domain]
		if !seen {
			i = len(ranked)
			counts[l.Domain] = i
			ranked = append(ranked, domain.DomainCount{Domain: l.Domain})
		}
		ranked[i].Count++
	}
	stats.Unread = stats.Total - stats.Read

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Count > ranked[b].Count
	})
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	stats.TopDomains = append(stats.TopDomains, ranked...)
	return stats
}
