package taxonomy

// DefaultActiveKeywords are substrings that mark a status as active.
func DefaultActiveKeywords() []string {
	return []string{"ATIV", "ATIVE", "ATUAL", "NORMAL", "REGULAR", "VIGENTE"}
}

// DefaultCancelled lists statuses that explicitly mean the contract ended.
func DefaultCancelled() []string {
	return []string{
		"CANCELADO", "INATIVO", "ENCERRADO", "CANCELADA",
		"CANCEL", "CANC", "INACTIVE", "CLOSED", "ENCERRADA",
	}
}

// DefaultSynthetic is the vocabulary drawn from when no status column exists.
func DefaultSynthetic() []string {
	return []string{"ATIVO", "CANCELADO", "TROCADO", "GRATUITO"}
}

// Default returns the taxonomy built from the default lists.
func Default() *Taxonomy {
	return New(DefaultActiveKeywords(), DefaultCancelled(), DefaultSynthetic())
}
