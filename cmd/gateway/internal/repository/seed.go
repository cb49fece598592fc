package repository

import (
	"github.com/shopspring/decimal"

	"github.com/priya3054/ZerodhaClone/pkg/models"
)

// DemoUserID is the account created by Seed.
const DemoUserID = "delta-student"

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func demoHoldings() []models.Holding {
	return []models.Holding{
		{Name: "BHARTIARTL", Qty: 2, Avg: d("538.05"), Price: d("541.15"), Net: "+0.58%", Day: "+2.99%"},
		{Name: "HDFCBANK", Qty: 2, Avg: d("1383.4"), Price: d("1522.35"), Net: "+10.04%", Day: "+0.11%"},
		{Name: "HINDUNILVR", Qty: 1, Avg: d("2335.85"), Price: d("2417.4"), Net: "+3.49%", Day: "+0.21%"},
		{Name: "INFY", Qty: 1, Avg: d("1350.5"), Price: d("1555.45"), Net: "+15.18%", Day: "-1.60%", IsLoss: true},
		{Name: "ITC", Qty: 5, Avg: d("202.0"), Price: d("207.9"), Net: "+2.92%", Day: "+0.80%"},
		{Name: "KPITTECH", Qty: 5, Avg: d("250.3"), Price: d("266.45"), Net: "+6.45%", Day: "+3.54%"},
		{Name: "M&M", Qty: 2, Avg: d("809.9"), Price: d("779.8"), Net: "-3.72%", Day: "-0.01%", IsLoss: true},
		{Name: "RELIANCE", Qty: 1, Avg: d("2193.7"), Price: d("2112.4"), Net: "-3.71%", Day: "+1.44%"},
		{Name: "SBIN", Qty: 4, Avg: d("324.35"), Price: d("430.2"), Net: "+32.63%", Day: "-0.34%", IsLoss: true},
		{Name: "SGBMAY29", Qty: 2, Avg: d("4727.0"), Price: d("4719.0"), Net: "-0.17%", Day: "+0.15%"},
		{Name: "TATAPOWER", Qty: 5, Avg: d("104.2"), Price: d("124.15"), Net: "+19.15%", Day: "-0.24%", IsLoss: true},
		{Name: "TCS", Qty: 1, Avg: d("3041.7"), Price: d("3194.8"), Net: "+5.03%", Day: "-0.25%", IsLoss: true},
		{Name: "WIPRO", Qty: 4, Avg: d("489.3"), Price: d("577.75"), Net: "+18.08%", Day: "+0.32%"},
	}
}

func demoPositions() []models.Position {
	return []models.Position{
		{Product: "CNC", Name: "EVEREADY", Qty: 2, Avg: d("316.27"), Price: d("312.35"), Net: "+0.58%", Day: "-1.24%", IsLoss: true},
		{Product: "CNC", Name: "JUBLFOOD", Qty: 1, Avg: d("3124.75"), Price: d("3082.65"), Net: "+10.04%", Day: "-1.35%", IsLoss: true},
	}
}

func demoAccount() models.User {
	return models.User{ID: DemoUserID, Username: "delta-student", Email: "student@gmail.com", Balance: decimal.Zero}
}
