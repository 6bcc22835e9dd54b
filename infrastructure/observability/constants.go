package observability

// Metric namespace
const (
	Namespace = "lendledger"
)

// Label keys
const (
	LabelToken  = "token"
	LabelSide   = "side"
	LabelReason = "reason"
	LabelKind   = "kind"
	LabelRoute  = "route"
	LabelStatus = "status"
)
