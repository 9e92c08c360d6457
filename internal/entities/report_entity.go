package entities

import "time"

type EngineerStat struct {
	EngineerID   uint64 `json:"engineer_id"`
	EngineerName string `json:"engineer_name"`
	Completed    int64  `json:"completed"`
}

type StatusCount struct {
	StatusID   int64  `json:"status_id"`
	StatusName string `json:"status"`
	Count      int64  `json:"count"`
}

type StatsPeriod struct {
	From time.Time
	To   time.Time
}
