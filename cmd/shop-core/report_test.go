package main

import (
	"bytes"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/vasiliy-maslov/shop-core/internal/catalog"
	"github.com/vasiliy-maslov/shop-core/internal/report"
)

func TestRenderSummary(t *testing.T) {
	var out bytes.Buffer
	renderSummary(&out, &report.Summary{
		ActiveProducts: []catalog.Product{
			{ID: uuid.Must(uuid.NewV4()), Name: "Desk Lamp", Price: decimal.RequireFromString("25.5")},
		},
		TopSoldProducts: []report.ProductSales{
			{ProductID: uuid.Must(uuid.NewV4()), Name: "Desk Lamp", QuantitySold: 7},
		},
		TopCustomers: []report.CustomerOrders{
			{CustomerID: uuid.Must(uuid.NewV4()), Username: "alice", OrderCount: 3},
		},
	})

	text := out.String()
	assert.Contains(t, text, "Active products")
	assert.Contains(t, text, "25.50")
	assert.Contains(t, text, "Top sold products")
	assert.Contains(t, text, "alice")
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CONFIG_PATH", "")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"token", "alice", "--role", "ADMIN", "--env-file", ""})

	assert.NoError(t, root.Execute())
	assert.NotEmpty(t, bytes.TrimSpace(out.Bytes()))
}
