package model

import "time"

// Metrics is the summary mapping handed to the presentation layer.
// Keys keep the names the dashboard reads; every value is zero-filled.
type Metrics struct {
	TotalClients     int                   `json:"total_clientes"`
	ActiveClients    int                   `json:"clientes_ativos"`
	ChurnRate        float64               `json:"taxa_churn"`
	TotalByCluster   map[Cluster]int       `json:"total_por_cluster"`
	ScoreByCluster   map[Cluster]float64   `json:"nps_por_cluster"`
	MeanScore        float64               `json:"nps_medio_geral"`
	Distribution     map[ScoreCategory]int `json:"dist_nps"`
	ValueByCluster   map[Cluster]float64   `json:"ticket_medio_por_cluster"`
	MeanValue        float64               `json:"ticket_medio_geral"`
	ChurnRiskClients int                   `json:"num_clientes_risco_churn"`
	UpsellClients    int                   `json:"num_clientes_upsell"`
	NPS              float64               `json:"nps_score"`
	SignedByMonth    map[string]int        `json:"contratos_por_mes"`
	Records          int                   `json:"registros"`
	Synthetic        bool                  `json:"synthetic_demo"`
}

// Report is what a pipeline run hands to its outputs.
type Report struct {
	RunID       string     `json:"run_id"`
	DatasetID   string     `json:"dataset_id"`
	Source      string     `json:"source"`
	GeneratedAt time.Time  `json:"generated_at"`
	Filter      Filter     `json:"filter"`
	Metrics     Metrics    `json:"metrics"`
	Records     []Record   `json:"records,omitempty"`
	Fallbacks   []Fallback `json:"fallbacks,omitempty"`
}
