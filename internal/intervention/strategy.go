package intervention

import "github.com/Alias1177/ChurnPredictor/models"

// Thresholds on the churn probability
const (
	HighRiskThreshold     = 0.7
	ModerateRiskThreshold = 0.4
)

var (
	highRisk = models.Intervention{
		Level:       models.RiskHigh,
		Title:       "High Churn Risk: Urgent Intervention Needed!",
		Description: "This customer is highly likely to churn soon. Immediate and personalized action is critical.",
		Actions: []string{
			"Personalized email/call from Account Manager to understand concerns.",
			"Offer a significant discount or tailored loyalty program.",
			"Conduct a 'win-back' survey if churn is imminent.",
		},
		Color: "red",
	}

	moderateRisk = models.Intervention{
		Level:       models.RiskModerate,
		Title:       "Moderate Churn Risk: Proactive Engagement Advised.",
		Description: "There's a noticeable risk of churn. Proactive measures can help retain this customer.",
		Actions: []string{
			"Send targeted content or feature usage tips.",
			"Offer a small, personalized incentive.",
			"Gather feedback through a short survey on recent experience.",
		},
		Color: "orange",
	}

	lowRisk = models.Intervention{
		Level:       models.RiskLow,
		Title:       "Low Churn Risk: Monitor & Nurture.",
		Description: "Customer seems stable, but continuous nurturing is always beneficial.",
		Actions: []string{
			"Continue regular communication and product updates.",
			"Encourage participation in community or beta programs.",
			"Maintain high-quality support and service.",
		},
		Color: "green",
	}
)

// Suggest returns the intervention for a churn probability
func Suggest(churnProbability float64) models.Intervention {
	var tmpl models.Intervention
	switch {
	case churnProbability >= HighRiskThreshold:
		tmpl = highRisk
	case churnProbability >= ModerateRiskThreshold:
		tmpl = moderateRisk
	default:
		tmpl = lowRisk
	}

	// callers own the returned actions
	tmpl.Actions = append([]string(nil), tmpl.Actions...)
	return tmpl
}
