package filterform

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Search parameter defaults used by the product search page.
const (
	DefaultSortBy           = "BEST_MATCH"
	DefaultProductCondition = "NEW"
	DefaultMinRating        = "ANY"
	DefaultMinPrice         = "0"
	DefaultMaxPrice         = "1000000"
	DefaultStores           = "Amazon"
	DefaultCountry          = "us"
	DefaultLanguage         = "en"
)

var (
	SortOptions      = []string{"BEST_MATCH", "LOWEST_PRICE", "HIGHEST_PRICE", "TOP_RATED"}
	ConditionOptions = []string{"ANY", "NEW", "USED", "REFURBISHED"}
	RatingOptions    = []string{"ANY", "1", "2", "3", "4"}
)

var ErrPriceRange = errors.New("filterform: min_price exceeds max_price")

// SearchParams is one query signature of the search page.
type SearchParams struct {
	Query            string `form:"query" validate:"max=256"`
	Page             int    `form:"page" validate:"min=1"`
	SortBy           string `form:"sort_by" validate:"oneof=BEST_MATCH LOWEST_PRICE HIGHEST_PRICE TOP_RATED"`
	ProductCondition string `form:"product_condition" validate:"oneof=ANY NEW USED REFURBISHED"`
	MinRating        string `form:"min_rating" validate:"oneof=ANY 1 2 3 4"`
	MinPrice         string `form:"min_price" validate:"numeric"`
	MaxPrice         string `form:"max_price" validate:"numeric"`
	Stores           string `form:"stores" validate:"required"`
	Country          string `form:"country" validate:"len=2,lowercase,alpha"`
	Language         string `form:"language" validate:"len=2,lowercase,alpha"`
}

// DefaultParams returns the parameters of an untouched search page.
func DefaultParams() SearchParams {
	return SearchParams{
		Page:             1,
		SortBy:           DefaultSortBy,
		ProductCondition: DefaultProductCondition,
		MinRating:        DefaultMinRating,
		MinPrice:         DefaultMinPrice,
		MaxPrice:         DefaultMaxPrice,
		Stores:           DefaultStores,
		Country:          DefaultCountry,
		Language:         DefaultLanguage,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field and that the price range is not inverted.
func (p SearchParams) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("filterform: invalid search params: %w", err)
	}
	lo, _ := strconv.ParseFloat(p.MinPrice, 64)
	hi, _ := strconv.ParseFloat(p.MaxPrice, 64)
	if lo > hi {
		return ErrPriceRange
	}
	return nil
}

// CacheKey identifies the result page for these parameters. Every field
// takes part, in declaration order.
func (p SearchParams) CacheKey() string {
	return strings.Join([]string{
		p.Query,
		strconv.Itoa(p.Page),
		p.SortBy,
		p.ProductCondition,
		p.MinRating,
		p.MinPrice,
		p.MaxPrice,
		p.Stores,
		p.Country,
		p.Language,
	}, "_")
}

// Values encodes the parameters as submitted form values.
func (p SearchParams) Values() url.Values {
	v := url.Values{}
	v.Set("query", p.Query)
	v.Set(FieldPage, strconv.Itoa(p.Page))
	v.Set("sort_by", p.SortBy)
	v.Set("product_condition", p.ProductCondition)
	v.Set("min_rating", p.MinRating)
	v.Set("min_price", p.MinPrice)
	v.Set("max_price", p.MaxPrice)
	v.Set("stores", p.Stores)
	v.Set("country", p.Country)
	v.Set("language", p.Language)
	return v
}

// ParseParams reads submitted values, falling back to defaults for absent
// fields, and validates the result.
func ParseParams(v url.Values) (SearchParams, error) {
	p := DefaultParams()
	get := func(name string, dst *string) {
		if val := strings.TrimSpace(v.Get(name)); val != "" {
			*dst = val
		}
	}
	p.Query = strings.TrimSpace(v.Get("query"))
	if raw := strings.TrimSpace(v.Get(FieldPage)); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return SearchParams{}, fmt.Errorf("filterform: invalid page %q: %w", raw, err)
		}
		p.Page = page
	}
	get("sort_by", &p.SortBy)
	get("product_condition", &p.ProductCondition)
	get("min_rating", &p.MinRating)
	get("min_price", &p.MinPrice)
	get("max_price", &p.MaxPrice)
	get("stores", &p.Stores)
	get("country", &p.Country)
	get("language", &p.Language)

	if err := p.Validate(); err != nil {
		return SearchParams{}, err
	}
	return p, nil
}

// NewSearchForm builds the standard filter form showing p, with the search
// page defaults as reset targets.
func NewSearchForm(p SearchParams) *Form {
	d := DefaultParams()
	return New(
		Field{Name: "query", Kind: KindText, Value: p.Query, Default: p.Query},
		Field{Name: "sort_by", Kind: KindSelect, Value: p.SortBy, Default: d.SortBy},
		Field{Name: "product_condition", Kind: KindSelect, Value: p.ProductCondition, Default: d.ProductCondition},
		Field{Name: "min_rating", Kind: KindSelect, Value: p.MinRating, Default: d.MinRating},
		Field{Name: "min_price", Kind: KindNumber, Value: p.MinPrice, Default: d.MinPrice},
		Field{Name: "max_price", Kind: KindNumber, Value: p.MaxPrice, Default: d.MaxPrice},
		Field{Name: "stores", Kind: KindSelect, Value: p.Stores, Default: d.Stores},
		Field{Name: "country", Kind: KindSelect, Value: p.Country, Default: d.Country},
		Field{Name: "language", Kind: KindSelect, Value: p.Language, Default: d.Language},
		Field{Name: FieldPage, Kind: KindHidden, Value: strconv.Itoa(p.Page), Default: "1"},
		Field{Name: "apply", Kind: KindSubmit, Value: "Apply Filters"},
	)
}
