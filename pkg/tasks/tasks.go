// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// CatalogIngestTask represents the data structure for a catalog ingestion job.
type CatalogIngestTask struct {
	UploadID   string `json:"upload_id"`
	ObjectName string `json:"object_name"`
	FileName   string `json:"file_name"`
}
