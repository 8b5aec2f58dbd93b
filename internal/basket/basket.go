// Package basket holds the fixed healthy-food basket definition the pricing
// pipeline resolves per region. Item order is the fetch order.
package basket

type Category string

const (
	CategoryGrains  Category = "grains"
	CategoryDairy   Category = "dairy"
	CategoryProtein Category = "protein"
	CategoryProduce Category = "produce"
	CategoryLegumes Category = "legumes"
)

type Item struct {
	// Name is the canonical item key used in the price cache.
	Name string
	// SearchTerms are provider-specific search phrases; the first one is
	// used for lookups.
	SearchTerms  []string
	Category     Category
	SNAPEligible bool
	// MinPrice and MaxPrice bound the plausible unit price. Offers outside
	// the range are rejected by the provider gateway.
	MinPrice float64
	MaxPrice float64
}

type Definition struct {
	Items []Item
}

func (d Definition) Size() int { return len(d.Items) }

func (d Definition) Names() []string {
	names := make([]string, 0, len(d.Items))
	for _, item := range d.Items {
		names = append(names, item.Name)
	}
	return names
}

// FallbackPrice returns the fixed category-level estimate used when the
// provider cannot be consulted. Estimates are not authoritative and are
// never written to the cache.
func FallbackPrice(c Category) float64 {
	switch c {
	case CategoryGrains:
		return 2.74
	case CategoryDairy:
		return 3.78
	case CategoryProtein:
		return 4.78
	case CategoryProduce:
		return 2.23
	case CategoryLegumes:
		return 1.78
	default:
		return 3.99
	}
}

// Default is the standard 8-item basket with standardized package sizes.
func Default() Definition {
	return Definition{Items: []Item{
		{
			Name:         "Brown Rice (2 lb bag)",
			SearchTerms:  []string{"brown rice 2 lb bag", "brown rice 2 pound bag", "whole grain brown rice 2 lb"},
			Category:     CategoryGrains,
			SNAPEligible: true,
			MinPrice:     2.00,
			MaxPrice:     8.00,
		},
		{
			Name:         "Whole Wheat Bread (20 oz loaf)",
			SearchTerms:  []string{"whole wheat bread 20 oz", "100% whole wheat bread loaf", "whole grain bread 20 oz"},
			Category:     CategoryGrains,
			SNAPEligible: true,
			MinPrice:     1.00,
			MaxPrice:     6.00,
		},
		{
			Name:         "Low-Fat Milk (1 gallon)",
			SearchTerms:  []string{"low fat milk 1 gallon", "2% milk gallon", "reduced fat milk gallon"},
			Category:     CategoryDairy,
			SNAPEligible: true,
			MinPrice:     2.00,
			MaxPrice:     6.00,
		},
		{
			Name:         "Boneless Skinless Chicken Breast (per lb)",
			SearchTerms:  []string{"boneless skinless chicken breast per lb", "chicken breast per pound", "fresh chicken breast lb"},
			Category:     CategoryProtein,
			SNAPEligible: true,
			MinPrice:     2.00,
			MaxPrice:     8.00,
		},
		{
			Name:         "Eggs (1 dozen, large)",
			SearchTerms:  []string{"large eggs 1 dozen", "grade A large eggs dozen", "fresh eggs 12 count large"},
			Category:     CategoryProtein,
			SNAPEligible: true,
			MinPrice:     1.00,
			MaxPrice:     5.00,
		},
		{
			Name:         "Apples (3 lb bag)",
			SearchTerms:  []string{"apples 3 lb bag", "gala apples 3 pound bag", "red delicious apples 3 lb"},
			Category:     CategoryProduce,
			SNAPEligible: true,
			MinPrice:     3.00,
			MaxPrice:     10.00,
		},
		{
			Name:         "Fresh Broccoli (1 lb)",
			SearchTerms:  []string{"fresh broccoli 1 lb", "broccoli crowns 1 pound", "fresh broccoli florets lb"},
			Category:     CategoryProduce,
			SNAPEligible: true,
			MinPrice:     1.00,
			MaxPrice:     5.00,
		},
		{
			Name:         "Dry Black Beans (1 lb bag)",
			SearchTerms:  []string{"black beans 1 lb dry", "dried black beans 1 pound bag", "black turtle beans 1 lb"},
			Category:     CategoryLegumes,
			SNAPEligible: true,
			MinPrice:     1.00,
			MaxPrice:     4.00,
		},
	}}
}
