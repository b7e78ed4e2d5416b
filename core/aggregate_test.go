package core

import (
	"reflect"
	"testing"
)

func TestCountByProduct(t *testing.T) {
	got := CountByProduct([]Interaction{
		{ProductID: "b"},
		{ProductID: "a"},
		{ProductID: "c"},
		{ProductID: "a"},
		{ProductID: ""},
		{ProductID: "c"},
	})
	want := []ProductCount{{"a", 2}, {"c", 2}, {"b", 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CountByProduct() = %v, want %v", got, want)
	}
	if got := CountByProduct(nil); got == nil || len(got) != 0 {
		t.Errorf("CountByProduct(nil) = %v, want empty", got)
	}
}

func TestCountCoOccurrences(t *testing.T) {
	order := func(ids ...string) *Order {
		o := &Order{}
		for _, id := range ids {
			o.Items = append(o.Items, OrderItem{ProductID: id, Quantity: 1})
		}
		return o
	}
	orders := []*Order{
		order("x", "z"),
		order("x", "y"),
		order("y", "w"),
		nil,
		order("x", "y"),
	}
	got := CountCoOccurrences(orders, "x")
	want := []ProductCount{{"y", 2}, {"z", 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CountCoOccurrences() = %v, want %v", got, want)
	}
	if ProductIDs(got)[0] != "y" {
		t.Errorf("ProductIDs() = %v", ProductIDs(got))
	}
}

func TestCountCategories(t *testing.T) {
	products := map[string]*Product{
		"a": {ID: "a", Category: "Home"},
		"b": {ID: "b", Category: "Fashion"},
		"c": {ID: "c", Category: "Fashion"},
	}
	got := CountCategories([]Interaction{
		{ProductID: "a"},
		{ProductID: "b"},
		{ProductID: "gone"},
		{ProductID: "c"},
	}, products)
	want := []CategoryCount{{"Fashion", 2}, {"Home", 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CountCategories() = %v, want %v", got, want)
	}
}
