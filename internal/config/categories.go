package config

// CategoryWeights orders command categories in help output. Unknown
// categories sort after every listed one.
var CategoryWeights = map[string]int{
	"Information": 0,
	"Utilities":   10,
	"Settings":    50,
	"Maintenance": 60,
	"Unknown":     100,
}

// CategoryWeight returns the sort weight of a category.
func CategoryWeight(category string) int {
	if w, ok := CategoryWeights[category]; ok {
		return w
	}
	return 1000
}
