package dispatch

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	confidenceFloor = 0.05
	confidenceCap   = 0.999
)

// Explanation is the human-readable rationale attached to every automated
// decision. Confidence is always in (0,1): never absent, never exactly 0 or 1.
type Explanation struct {
	Text         string        `json:"text"`
	Bullets      []string      `json:"bullets"`
	Confidence   float64       `json:"confidence"`
	Alternatives []Alternative `json:"alternatives"`
}

type Alternative struct {
	TechnicianID string  `json:"technician_id"`
	Name         string  `json:"name"`
	ReasonShort  string  `json:"reason_short,omitempty"`
	Score        float64 `json:"score"`
}

// Confidence reports the chosen candidate's softmax probability over the
// top-K candidate scores, numerically stabilized by subtracting the max
// before exponentiating. If the chosen candidate is missing from the top-K
// its score is appended so it is represented. With no candidate list a
// logistic mapping of the raw score is used. The result is floored at 0.05
// and capped at 0.999.
func Confidence(candidates []CandidateResult, chosen *CandidateResult) float64 {
	if chosen == nil {
		return confidenceFloor
	}

	top := candidates
	if len(top) > topK {
		top = top[:topK]
	}

	if len(top) == 0 {
		// logistic fallback on the raw score
		c := 1.0 / (1.0 + math.Exp(-chosen.Score/5.0))
		return clampConfidence(c)
	}

	scores := make([]float64, 0, len(top)+1)
	chosenIdx := -1
	for i, c := range top {
		scores = append(scores, c.Score)
		if c.TechnicianID == chosen.TechnicianID {
			chosenIdx = i
		}
	}
	if chosenIdx == -1 {
		scores = append(scores, chosen.Score)
		chosenIdx = len(scores) - 1
	}

	maxS := scores[0]
	for _, s := range scores[1:] {
		if s > maxS {
			maxS = s
		}
	}
	sum := 0.0
	exps := make([]float64, len(scores))
	for i, s := range scores {
		exps[i] = math.Exp(s - maxS)
		sum += exps[i]
	}
	return clampConfidence(exps[chosenIdx] / sum)
}

// BuildExplanation synthesizes the bullet list, one-line summary, confidence,
// and up to two alternatives for a selection.
func BuildExplanation(sel Selection) Explanation {
	if sel.Chosen == nil {
		return Explanation{
			Text:       "No suitable candidate was chosen.",
			Bullets:    []string{},
			Confidence: 0.0,
		}
	}

	chosen := *sel.Chosen
	b := chosen.Breakdown

	var bullets []string
	if b.SkillMatchCount > 0 {
		bullets = append(bullets, fmt.Sprintf("Has %d required skill(s).", b.SkillMatchCount))
	}
	if b.DistanceKm != nil {
		bullets = append(bullets, fmt.Sprintf("Approx distance: %.3f km.", *b.DistanceKm))
	}
	if b.Availability > 0 {
		bullets = append(bullets, "Currently marked available.")
	} else {
		bullets = append(bullets, "Not marked available.")
	}
	switch {
	case b.FatigueScore >= FatigueWarningThreshold:
		bullets = append(bullets, fmt.Sprintf("High recent workload (fatigue %.3f, %d active/recent jobs).", b.FatigueScore, b.AssignedCount))
	case b.FatigueScore >= 0.4:
		bullets = append(bullets, fmt.Sprintf("Moderate workload (fatigue %.3f).", b.FatigueScore))
	default:
		bullets = append(bullets, "Low recent workload.")
	}

	summary := summarizeContributions(b)
	confidence := Confidence(sel.Candidates, sel.Chosen)

	var alternatives []Alternative
	for _, alt := range sel.Candidates {
		if alt.TechnicianID == chosen.TechnicianID {
			continue
		}
		var parts []string
		if alt.Breakdown.SkillMatchCount > 0 {
			parts = append(parts, fmt.Sprintf("%d skills", alt.Breakdown.SkillMatchCount))
		}
		if alt.Breakdown.DistanceKm != nil {
			parts = append(parts, fmt.Sprintf("%.3f km", *alt.Breakdown.DistanceKm))
		}
		alternatives = append(alternatives, Alternative{
			TechnicianID: alt.TechnicianID,
			Name:         alt.Name,
			ReasonShort:  strings.Join(parts, ", "),
			Score:        alt.Score,
		})
		if len(alternatives) >= 2 {
			break
		}
	}

	name := chosen.Name
	if name == "" {
		name = chosen.TechnicianID
	}
	text := fmt.Sprintf("Assigned to %s — %s. Confidence: %d%%.", name, summary, int(confidence*100))

	return Explanation{
		Text:         text,
		Bullets:      bullets,
		Confidence:   round3(confidence),
		Alternatives: alternatives,
	}
}

// summarizeContributions orders positive contributors by magnitude and names
// them; when nothing positive stands out the composite score is the reason.
func summarizeContributions(b Breakdown) string {
	type contrib struct {
		name string
		val  float64
	}
	contribs := []contrib{
		{"skill", float64(b.SkillMatchCount)},
		{"distance", b.DistanceScore},
		{"availability", b.AvailabilityScore},
	}
	sort.SliceStable(contribs, func(i, j int) bool {
		return math.Abs(contribs[i].val) > math.Abs(contribs[j].val)
	})

	var reasons []string
	for _, c := range contribs {
		if c.val <= 0 {
			continue
		}
		switch c.name {
		case "skill":
			reasons = append(reasons, "strong skill match")
		case "distance":
			reasons = append(reasons, "close proximity")
		case "availability":
			reasons = append(reasons, "available now")
		}
	}
	if len(reasons) == 0 {
		return "Best composite score among candidates"
	}
	return strings.Join(reasons, ", ")
}

func clampConfidence(c float64) float64 {
	if math.IsNaN(c) || c < confidenceFloor {
		return confidenceFloor
	}
	if c > confidenceCap {
		return confidenceCap
	}
	return c
}
