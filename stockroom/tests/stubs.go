package tests

import (
	"context"

	"github.com/gerald-spec/novastock/utils/emailgen"
)

// drafterStub stands in for the openai client so tests control generation
// results and failures.
type drafterStub struct {
	email string
	err   error
	calls int
}

func (d *drafterStub) Draft(ctx context.Context, req *emailgen.DraftRequest) (string, error) {
	d.calls++
	if d.err != nil {
		return "", d.err
	}
	if d.email != "" {
		return d.email, nil
	}
	return "Subject: Purchase order: " + req.ItemName + "\n\ngenerated email body", nil
}
