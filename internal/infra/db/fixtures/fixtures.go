// Package fixtures seeds a small catalog and demo accounts. It backs dev mode
// and the seed command.
package fixtures

import (
	"context"
	"errors"
	"time"

	"trading-academy/internal/domain"
	"trading-academy/internal/domain/model"
	"trading-academy/internal/domain/ports/repository"
)

type Repos struct {
	Users     repository.UserRepository
	Resources repository.ResourceRepository
	Signals   repository.SignalRepository
}

// Result lists what was written; existing rows are left alone.
type Result struct {
	Users     []*model.User
	Resources int
	Signals   int
}

var demoUsers = []struct {
	id, email, name string
	role            model.Role
}{
	{"demo-student", "student@academy.test", "Demo Student", model.RoleStudent},
	{"demo-premium", "premium@academy.test", "Demo Premium", model.RolePremium},
	{"demo-support", "support@academy.test", "Demo Support", model.RoleSupport},
}

var catalog = []model.Resource{
	{ID: "res-intro-charts", Title: "Reading price charts"},
	{ID: "res-risk-basics", Title: "Position sizing basics"},
	{ID: "res-order-flow", Title: "Order flow deep dive", Premium: true, Price: 1900, Currency: "usd"},
	{ID: "res-options-greeks", Title: "Options greeks workbook", Premium: true, Price: 2900, Currency: "usd"},
}

var signals = []model.Signal{
	{ID: "sig-spy-long", Symbol: "SPY", Direction: "long"},
	{ID: "sig-nvda-short", Symbol: "NVDA", Direction: "short", Premium: true},
	{ID: "sig-eurusd-long", Symbol: "EURUSD", Direction: "long", Premium: true},
}

// Seed is idempotent: users are matched by email and catalog rows are upserted.
func Seed(ctx context.Context, r Repos) (Result, error) {
	var res Result
	for _, du := range demoUsers {
		u, err := r.Users.FindByEmail(ctx, repository.NoTX, du.email)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrNotFound):
			u, err = model.NewUser(du.id, du.email, du.name, du.role)
			if err != nil {
				return res, err
			}
			if err := r.Users.Save(ctx, repository.NoTX, u); err != nil {
				return res, err
			}
		default:
			return res, err
		}
		res.Users = append(res.Users, u)
	}

	for i := range catalog {
		c := catalog[i]
		if err := r.Resources.Save(ctx, repository.NoTX, &c); err != nil {
			return res, err
		}
		res.Resources++
	}

	now := time.Now().UTC()
	for i := range signals {
		s := signals[i]
		s.CreatedAt = now.Add(-time.Duration(i) * time.Hour)
		if err := r.Signals.Save(ctx, repository.NoTX, &s); err != nil {
			return res, err
		}
		res.Signals++
	}
	return res, nil
}
