package models

import "context"

type CustomerStore interface {
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	ListCustomers(ctx context.Context) ([]Customer, error)
	SaveForecast(ctx context.Context, analysis *Analysis) error
}
