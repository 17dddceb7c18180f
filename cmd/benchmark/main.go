package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/optexch/exchange-core/pkg/orderbook"
)

const (
	numOrders = 1_000_000
	minPrice  = 100_0000 // 100.0000 in ticks
	maxPrice  = 200_0000
	minQty    = 1
	maxQty    = 100
)

func randomOrder(id int64) *orderbook.Order {
	side := orderbook.BUY
	if rand.Intn(2) == 0 {
		side = orderbook.SELL
	}
	price := int64(rand.Intn(maxPrice-minPrice+1) + minPrice)
	qty := int64(rand.Intn(maxQty-minQty+1) + minQty)

	return &orderbook.Order{
		ID:       id,
		ClientID: fmt.Sprintf("ORD-%06d", id),
		Symbol:   "ABC",
		Side:     side,
		Type:     orderbook.LIMIT,
		Price:    price,
		Qty:      qty,
		Leaves:   qty,
	}
}

func main() {
	engine := orderbook.NewMatchingEngine()

	printed := 0
	engine.RegisterTradeListener(func(trades []*orderbook.Trade) {
		for _, t := range trades {
			if printed < 5 {
				printed++
				fmt.Printf("match: taker %d <=> maker %d @ %d qty %d\n",
					t.TakerOrderID, t.MakerOrderID, t.Price, t.Qty)
			}
		}
	})

	start := time.Now()
	for i := int64(1); i <= numOrders; i++ {
		_, _ = engine.Submit(randomOrder(i))
	}
	elapsed := time.Since(start)

	stats := engine.Stats()
	fmt.Println("--------")
	fmt.Printf("Total orders     : %d\n", numOrders)
	fmt.Printf("Total matches    : %d\n", stats.MatchCount)
	fmt.Printf("Total matched qty: %d\n", stats.MatchQty)
	fmt.Printf("Time taken       : %s\n", elapsed)
	fmt.Printf("Orders/sec       : %.0f\n", float64(numOrders)/elapsed.Seconds())
}
