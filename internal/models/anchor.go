package models

import "time"

// AnchorRecord is an entry of the append-only anchor log
type AnchorRecord struct {
	TransactionNumber   int64  `json:"transactionNumber" bson:"transactionNumber"`
	TransactionTime     int64  `json:"transactionTime" bson:"transactionTime"`
	TransactionTimeHash string `json:"transactionTimeHash" bson:"transactionTimeHash"`
	AnchorString        string `json:"anchorString" bson:"anchorString"`
	TransactionFeePaid  int64  `json:"transactionFeePaid" bson:"transactionFeePaid"`
	Writer              string `json:"writer" bson:"writer"`
}

// ServiceState is the single record governing schema compatibility
type ServiceState struct {
	DatabaseVersion string    `json:"databaseVersion" bson:"databaseVersion"`
	UpdatedAt       time.Time `json:"updatedAt" bson:"updatedAt"`
}
