// internal/app/system/txn/mode.go
package txn

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Transaction modes of a deployment.
const (
	ModeNative      = "native"
	ModeCompensated = "compensated"
)

// Mode reports whether client's deployment runs multi-document
// transactions (replica set or sharded cluster) or whether RunCompensated
// falls back to compensating rollback (standalone server).
func Mode(ctx context.Context, client *mongo.Client) (string, error) {
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello)
	if err != nil {
		return "", err
	}
	if hello.SetName != "" || hello.Msg == "isdbgrid" {
		return ModeNative, nil
	}
	return ModeCompensated, nil
}
