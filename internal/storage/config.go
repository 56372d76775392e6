package storage

// DynamoMode represents the DynamoDB connection mode
type DynamoMode string

const (
	DynamoModeLocal DynamoMode = "local"
	DynamoModeAWS   DynamoMode = "aws"
	DynamoModeNone  DynamoMode = "none"
	// DynamoModeMemory keeps records in process, for development
	DynamoModeMemory DynamoMode = "memory"
)

// ParseDynamoMode maps unknown values to DynamoModeNone
func ParseDynamoMode(s string) DynamoMode {
	switch DynamoMode(s) {
	case DynamoModeLocal, DynamoModeAWS, DynamoModeMemory:
		return DynamoMode(s)
	default:
		return DynamoModeNone
	}
}

// DynamoConfig holds DynamoDB configuration
type DynamoConfig struct {
	Mode             DynamoMode
	Endpoint         string // for local mode
	Region           string
	CallRecordsTable string
}
