package models

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Image is one gallery image: the binary lives in S3, the metadata here.
// PublicId is the S3 object key needed to delete the binary later; it is
// never shown in the UI but travels in the JSON payload the original API
// exposed, so the field name is kept.
type Image struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	URL       string        `bson:"url" json:"url"`
	PublicID  string        `bson:"publicId" json:"publicId"`
	Title     string        `bson:"title" json:"title"`
	Caption   string        `bson:"caption" json:"caption"`
	// RFC 3339 UTC; stored as a string so the descending sort the store
	// performs is plain lexicographic order.
	CreatedAt string `bson:"createdAt" json:"createdAt"`
}
