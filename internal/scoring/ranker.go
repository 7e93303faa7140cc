package scoring

import (
	"sort"

	"github.com/Jenny-Gump/content-generator/internal/config"
	"github.com/Jenny-Gump/content-generator/internal/domain"
)

// ScoreAll fills the trust, relevance and depth scores of every record using
// the configured tables and saturation thresholds. Records are scored
// independently; ranking happens afterwards over the whole set.
func ScoreAll(records []domain.SourceRecord, topic string, cfg config.ScoringConfig) []domain.SourceRecord {
	def := cfg.DefaultTrust
	if def == 0 {
		def = 1.0
	}

	scored := make([]domain.SourceRecord, len(records))
	for i, rec := range records {
		if rec.Domain == "" {
			rec.Domain = domain.DomainOf(rec.URL)
		}
		rec.TrustScore = TrustScore(rec.Domain, cfg.TrustTable, def)
		rec.RelevanceScore = RelevanceScore(rec.Title, rec.RawContent, topic, cfg.RelevanceSaturation)
		rec.DepthScore = DepthScore(len(rec.RawContent), cfg.DepthMin, cfg.DepthSaturation)
		scored[i] = rec
	}
	return scored
}

// Rank computes the weighted final score for each record, orders the set
// descending and returns the top-N with ranks 1..N assigned. The sort is
// stable: records with equal final scores keep their input order. The input
// slice is not mutated; callers may still inspect records beyond top-N.
func Rank(records []domain.SourceRecord, weights domain.ScoringWeights, topN int) []domain.SourceRecord {
	if len(records) == 0 {
		return []domain.SourceRecord{}
	}

	ranked := make([]domain.SourceRecord, len(records))
	copy(ranked, records)

	for i := range ranked {
		ranked[i].FinalScore = ranked[i].TrustScore*weights.Trust +
			ranked[i].RelevanceScore*weights.Relevance +
			ranked[i].DepthScore*weights.Depth
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore > ranked[j].FinalScore
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}
