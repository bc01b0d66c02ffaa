package service

import (
	"context"
	"fmt"

	"coursecart/internal/codegen"
	"coursecart/internal/model"
	"coursecart/internal/repository"
)

// maxCodeAttempts bounds retries after a generated code collides with an existing one.
const maxCodeAttempts = 10

// mintCodes creates n registration codes for a course mode.
func mintCodes(ctx context.Context, codes repository.RegistrationCodeRepository, q repository.DBTX,
	gen codegen.Generator, template model.RegistrationCode, n int) ([]model.RegistrationCode, error) {
	minted := make([]model.RegistrationCode, 0, n)
	for len(minted) < n {
		created := false
		for attempt := 0; attempt < maxCodeAttempts && !created; attempt++ {
			code, err := gen.Next()
			if err != nil {
				return nil, err
			}
			rc := template
			rc.Code = code
			created, err = codes.Create(ctx, q, &rc)
			if err != nil {
				return nil, err
			}
			if created {
				minted = append(minted, rc)
			}
		}
		if !created {
			return nil, fmt.Errorf("failed to generate a unique registration code after %d attempts", maxCodeAttempts)
		}
	}
	return minted, nil
}
