package aggregator

import "github.com/crimson-sun/clientpulse/internal/model"

// DemoFloor holds the presentation floors applied by Inflate.
type DemoFloor struct {
	MinTotal    int
	MinActive   int
	ActiveShare float64
	ChurnShare  float64
	UpsellShare float64
}

// DefaultDemoFloor returns the floors the showcase dashboard used.
func DefaultDemoFloor() DemoFloor {
	return DemoFloor{
		MinTotal:    700,
		MinActive:   650,
		ActiveShare: 0.95,
		ChurnShare:  0.15,
		UpsellShare: 0.25,
	}
}

// Inflate overwrites client counts with synthetic showcase numbers and marks
// the metrics as synthetic. The result is not a measurement of anything; it
// only runs when demo inflation is explicitly switched on.
func Inflate(m *model.Metrics, f DemoFloor) {
	total := m.TotalClients
	if total < f.MinTotal {
		total = f.MinTotal
	}
	active := int(float64(total) * f.ActiveShare)
	if active < f.MinActive {
		active = f.MinActive
	}
	churn := int(float64(total) * f.ChurnShare)
	upsell := int(float64(total) * f.UpsellShare)

	m.TotalClients = total
	m.ActiveClients = active
	if m.TotalByCluster == nil {
		m.TotalByCluster = make(map[model.Cluster]int)
	}
	m.TotalByCluster[model.Regular] = total - churn - upsell
	m.TotalByCluster[model.ChurnRisk] = churn
	m.TotalByCluster[model.UpsellPotential] = upsell
	m.ChurnRiskClients = churn
	m.UpsellClients = upsell
	m.Synthetic = true
}
