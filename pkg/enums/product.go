package enums

// ProductCategory is the catalog department a product is listed under.
type ProductCategory string

const (
	ProductCategoryMen   ProductCategory = "Men"
	ProductCategoryWomen ProductCategory = "Women"
	ProductCategoryKids  ProductCategory = "Kids"
)

var productCategories = members[ProductCategory]{
	ProductCategoryMen,
	ProductCategoryWomen,
	ProductCategoryKids,
}

func (c ProductCategory) String() string { return string(c) }

func (c ProductCategory) IsValid() bool { return productCategories.contains(c) }

func ParseProductCategory(value string) (ProductCategory, error) {
	return productCategories.parse("product category", value)
}

// ProductSize is a garment size. A product lists the subset it is cut in.
type ProductSize string

const (
	ProductSizeS  ProductSize = "S"
	ProductSizeM  ProductSize = "M"
	ProductSizeL  ProductSize = "L"
	ProductSizeXL ProductSize = "XL"
)

var productSizes = members[ProductSize]{ProductSizeS, ProductSizeM, ProductSizeL, ProductSizeXL}

func (s ProductSize) String() string { return string(s) }

func (s ProductSize) IsValid() bool { return productSizes.contains(s) }

func ParseProductSize(value string) (ProductSize, error) {
	return productSizes.parse("product size", value)
}
