// Package clientpulse segments client contract tables into Regular,
// ChurnRisk and UpsellPotential clients and computes customer-success metrics.
//
// Quick start:
//
//	cp := clientpulse.New()
//	a, err := cp.ReadCSV(f)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	m, _ := a.Metrics("All")
//	fmt.Println(m.NPS, m.TotalByCluster[clientpulse.ChurnRisk])
//
// Column names are reconciled against a built-in alias table, so exports
// using CD_CLIENTE, VL_TOTAL_CONTRATO, resposta_NPS_x and similar names work
// unchanged. Missing or unusable columns are replaced by seeded synthetic
// values and listed in Analysis.Fallbacks.
package clientpulse
