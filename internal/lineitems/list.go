package lineitems

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/quotation-engine/pkg/errors"
	"github.com/angelmondragon/quotation-engine/pkg/enums"
	"github.com/angelmondragon/quotation-engine/pkg/types"
)

// Field names an editable column of a line item.
type Field string

const (
	FieldDescription Field = "description"
	FieldQuantity    Field = "quantity"
	FieldUnitPrice   Field = "unitPrice"
	FieldUOM         Field = "uom"
	FieldCategory    Field = "category"
)

// List is an ordered set of quote rows. Every operation returns a new List and
// leaves the receiver untouched, so a List can be shared with readers freely.
//
// The list does not clamp quantities or prices; callers clamp to zero before
// calling Update and the validation rules catch anything negative.
type List struct {
	items []types.LineItem
}

// New copies items into a List.
func New(items []types.LineItem) List {
	return List{items: clone(items)}
}

// Items returns a copy of the rows in order.
func (l List) Items() []types.LineItem {
	return clone(l.items)
}

func (l List) Len() int {
	return len(l.items)
}

// Find returns the row with the given id.
func (l List) Find(id string) (types.LineItem, bool) {
	for _, item := range l.items {
		if item.ID == id {
			return item, true
		}
	}
	return types.LineItem{}, false
}

// Add appends an empty custom row of the given category.
func (l List) Add(category enums.LineItemCategory) (List, types.LineItem, error) {
	if !category.IsValid() {
		return l, types.LineItem{}, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid line item category %q", category)
	}
	item := types.LineItem{
		ID:       uuid.NewString(),
		Category: category,
	}
	next := make([]types.LineItem, 0, len(l.items)+1)
	next = append(next, l.items...)
	next = append(next, item)
	return List{items: next}, item, nil
}

// Update replaces one field of the row with the given id.
// value must be a string for description, uom and category and a float64 for amounts.
func (l List) Update(id string, field Field, value any) (List, error) {
	idx := l.indexOf(id)
	if idx < 0 {
		return l, pkgerrors.Newf(pkgerrors.CodeNotFound, "line item %s not found", id)
	}
	updated := l.items[idx]
	if err := apply(&updated, field, value); err != nil {
		return l, err
	}
	next := clone(l.items)
	next[idx] = updated
	return List{items: next}, nil
}

// Remove drops the row with the given id. Unknown ids leave the list unchanged.
func (l List) Remove(id string) List {
	idx := l.indexOf(id)
	if idx < 0 {
		return l
	}
	next := make([]types.LineItem, 0, len(l.items)-1)
	next = append(next, l.items[:idx]...)
	next = append(next, l.items[idx+1:]...)
	return List{items: next}
}

// Replace swaps the whole row set, e.g. after standard lines are recalculated.
func (l List) Replace(items []types.LineItem) List {
	return New(items)
}

func (l List) indexOf(id string) int {
	for i, item := range l.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func apply(item *types.LineItem, field Field, value any) error {
	switch field {
	case FieldDescription, FieldUOM, FieldCategory:
		s, ok := value.(string)
		if !ok {
			return typeMismatch(field, "string", value)
		}
		switch field {
		case FieldDescription:
			item.Description = s
		case FieldUOM:
			item.UOM = s
		default:
			category, err := enums.ParseLineItemCategory(s)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
			}
			item.Category = category
		}
	case FieldQuantity, FieldUnitPrice:
		n, ok := toFloat(value)
		if !ok {
			return typeMismatch(field, "number", value)
		}
		if field == FieldQuantity {
			item.Quantity = n
		} else {
			item.UnitPrice = n
		}
	default:
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown line item field %q", field)
	}
	return nil
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func typeMismatch(field Field, want string, value any) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s expects a %s, got %T", field, want, value))
}

func clone(items []types.LineItem) []types.LineItem {
	if items == nil {
		return nil
	}
	out := make([]types.LineItem, len(items))
	for i, item := range items {
		if item.SystemKey != nil {
			key := *item.SystemKey
			item.SystemKey = &key
		}
		out[i] = item
	}
	return out
}
