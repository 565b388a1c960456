package service

import (
	"storefront/internal/models"
	"storefront/internal/pricing"
)

// snapshotLine pairs a requested quantity with the product row read under
// lock in the same transaction, so name and price cannot drift between the
// quote and the committed order.
type snapshotLine struct {
	Product  *models.Product
	Quantity int
}

// assembleOrder builds the order and its lines from the locked product
// snapshots. Form validation happens upstream, but this is the last gate
// before persistence, so required fields are re-checked here.
func assembleOrder(userID int64, lines []snapshotLine, info models.CustomerInfo, quote pricing.Quote, paymentMethod string) (*models.Order, []models.OrderLine, error) {
	if err := validateCustomerInfo(info); err != nil {
		return nil, nil, err
	}
	if paymentMethod != models.PaymentMethodCash && paymentMethod != models.PaymentMethodCard {
		return nil, nil, &ValidationError{Field: "payment_method", Reason: "must be cash or card"}
	}

	order := &models.Order{
		UserID:        userID,
		FirstName:     info.FirstName,
		LastName:      info.LastName,
		Phone:         info.Phone,
		Address:       info.Address,
		Country:       info.Country,
		TotalAmount:   quote.Total,
		Tax:           quote.Tax,
		ShippingFee:   quote.ShippingFee,
		Status:        models.OrderStatusPending,
		PaymentMethod: paymentMethod,
	}

	orderLines := make([]models.OrderLine, 0, len(lines))
	for _, l := range lines {
		orderLines = append(orderLines, models.OrderLine{
			ProductID:    l.Product.ID,
			Quantity:     l.Quantity,
			ProductName:  l.Product.Name,
			ProductPrice: l.Product.Price,
		})
	}

	return order, orderLines, nil
}

func validateCustomerInfo(info models.CustomerInfo) error {
	fields := []struct {
		name  string
		value string
	}{
		{"first_name", info.FirstName},
		{"last_name", info.LastName},
		{"phone", info.Phone},
		{"address", info.Address},
		{"country", info.Country},
	}
	for _, f := range fields {
		if f.value == "" {
			return &ValidationError{Field: f.name, Reason: "must not be empty"}
		}
	}
	return nil
}
