package character

import "fmt"

// Quality is the raw item quality code stored on extended items.
type Quality uint8

const (
	QualityLow      Quality = 1
	QualityNormal   Quality = 2
	QualitySuperior Quality = 3
	QualityMagic    Quality = 4
	QualitySet      Quality = 5
	QualityRare     Quality = 6
	QualityUnique   Quality = 7
	QualityCrafted  Quality = 8
)

var qualityNames = map[Quality]string{
	QualityLow:      "low quality",
	QualityNormal:   "normal",
	QualitySuperior: "superior",
	QualityMagic:    "magic",
	QualitySet:      "set",
	QualityRare:     "rare",
	QualityUnique:   "unique",
	QualityCrafted:  "crafted",
}

func (q Quality) String() string {
	if name, ok := qualityNames[q]; ok {
		return name
	}
	return fmt.Sprintf("quality(%d)", uint8(q))
}

// ItemQuality is the base item tier.
type ItemQuality uint8

const (
	TierNormal ItemQuality = iota
	TierExceptional
	TierElite
)

func (q ItemQuality) String() string {
	switch q {
	case TierNormal:
		return "normal"
	case TierExceptional:
		return "exceptional"
	case TierElite:
		return "elite"
	default:
		return fmt.Sprintf("tier(%d)", uint8(q))
	}
}

// ParseItemQuality converts a tier ordinal. Only 0, 1 and 2 are valid.
func ParseItemQuality(ordinal uint8) (ItemQuality, error) {
	if ordinal > uint8(TierElite) {
		return 0, fmt.Errorf("unknown item tier %d", ordinal)
	}
	return ItemQuality(ordinal), nil
}

// MagicProperty is a single stat line on an item.
type MagicProperty struct {
	ID          uint32   `json:"id"`
	Name        string   `json:"name"`
	Values      []int32  `json:"values"`
	Description *string  `json:"description,omitempty"`
	Visible     *bool    `json:"visible,omitempty"`
	OpValue     *uint32  `json:"op_value,omitempty"`
	OpStats     []string `json:"op_stats,omitempty"`
}

type WeaponDamage struct {
	MinDamage        *uint16 `json:"mindam,omitempty"`
	MaxDamage        *uint16 `json:"maxdam,omitempty"`
	TwoHandMinDamage *uint16 `json:"twohandmindam,omitempty"`
	TwoHandMaxDamage *uint16 `json:"twohandmaxdam,omitempty"`
}

// Item is one item record. Extended is set for non-simple items, Runeword
// when the item carries a runeword. SocketedItems hold the items inserted in
// this item's sockets; they never hold socketed items of their own.
type Item struct {
	ItemCommon
	Extended      *ExtendedItem
	Runeword      *Runeword
	SocketedItems []Item
}

// ItemCommon holds the placement and identity fields every item carries.
type ItemCommon struct {
	Identified       bool
	Socketed         bool
	New              bool
	IsEar            bool
	StarterItem      bool
	SimpleItem       bool
	Ethereal         bool
	Personalized     bool
	PersonalizedName *string
	GivenRuneword    bool
	Version          string

	LocationID    uint8
	EquippedID    uint8
	PositionX     uint8
	PositionY     uint8
	AltPositionID uint8

	Type               string
	TypeID             uint8
	TypeName           string
	Categories         []string
	Tier               *ItemQuality
	QuestDifficulty    *uint8
	NrOfItemsInSockets uint8

	InvWidth       uint8
	InvHeight      uint8
	InvFile        string
	InvTransform   *uint8
	TransformColor *string
}

// ExtendedItem holds the fields stored only for non-simple items.
type ExtendedItem struct {
	ID               *uint32
	Level            *uint8
	MultiplePictures *uint8
	PictureID        *uint8
	ClassSpecific    *uint8
	AutoAffixID      *uint8
	Timestamp        *uint8

	DefenseRating     *uint16
	MaxDurability     *uint16
	CurrentDurability *uint16
	Quantity          *uint16
	TotalSockets      *uint8

	ReqStr     *uint16
	ReqDex     *uint16
	BaseDamage *WeaponDamage

	MagicAttributes                  []MagicProperty
	CombinedMagicAttributes          []MagicProperty
	DisplayedMagicAttributes         []MagicProperty
	DisplayedCombinedMagicAttributes []MagicProperty

	Variant ItemVariant
}

// Quality returns the raw quality code of the variant.
func (e *ExtendedItem) Quality() Quality {
	return e.Variant.Quality()
}

type Runeword struct {
	ID                  *uint16
	Name                *string
	Attributes          []MagicProperty
	DisplayedAttributes []MagicProperty
}

// ItemVariant is the quality-specific part of an extended item.
type ItemVariant interface {
	Quality() Quality
	itemVariant()
}

type LowQualityItem struct {
	LowQualityID *uint8
}

type NormalItem struct{}

type SuperiorItem struct {
	FileIndex *uint8
}

// Affix is a magic prefix or suffix.
type Affix struct {
	ID   uint16
	Name *string
}

type MagicItem struct {
	Prefix *Affix
	Suffix *Affix
}

// SetItem always carries at least one set bonus list.
type SetItem struct {
	ID         *uint16
	Name       *string
	ListCount  *uint8
	Attributes [][]MagicProperty
	NumReq     *uint8
	IDsReq     *uint8
}

// RareNames identifies the generated name of rare and crafted items.
type RareNames struct {
	Name           *string
	Name2          *string
	NameID         *uint8
	NameID2        *uint8
	MagicalNameIDs []*uint16
}

type RareItem struct {
	RareNames
}

type UniqueItem struct {
	ID   *uint16
	Name *string
}

type CraftedItem struct {
	RareNames
}

func (LowQualityItem) Quality() Quality { return QualityLow }
func (NormalItem) Quality() Quality     { return QualityNormal }
func (SuperiorItem) Quality() Quality   { return QualitySuperior }
func (MagicItem) Quality() Quality      { return QualityMagic }
func (SetItem) Quality() Quality        { return QualitySet }
func (RareItem) Quality() Quality       { return QualityRare }
func (UniqueItem) Quality() Quality     { return QualityUnique }
func (CraftedItem) Quality() Quality    { return QualityCrafted }

func (LowQualityItem) itemVariant() {}
func (NormalItem) itemVariant()     {}
func (SuperiorItem) itemVariant()   {}
func (MagicItem) itemVariant()      {}
func (SetItem) itemVariant()        {}
func (RareItem) itemVariant()       {}
func (UniqueItem) itemVariant()     {}
func (CraftedItem) itemVariant()    {}

// Quality returns the item's quality code, or 0 for simple items.
func (it *Item) Quality() Quality {
	if it.Extended == nil || it.Extended.Variant == nil {
		return 0
	}
	return it.Extended.Quality()
}

// DisplayName picks the most specific name the item carries.
func (it *Item) DisplayName() string {
	if it.Runeword != nil && it.Runeword.Name != nil {
		return *it.Runeword.Name
	}
	if it.Extended != nil {
		switch v := it.Extended.Variant.(type) {
		case UniqueItem:
			if v.Name != nil {
				return *v.Name
			}
		case SetItem:
			if v.Name != nil {
				return *v.Name
			}
		case RareItem:
			if name := v.fullName(); name != "" {
				return name
			}
		case CraftedItem:
			if name := v.fullName(); name != "" {
				return name
			}
		}
	}
	return it.TypeName
}

func (r RareNames) fullName() string {
	switch {
	case r.Name != nil && r.Name2 != nil:
		return *r.Name + " " + *r.Name2
	case r.Name != nil:
		return *r.Name
	default:
		return ""
	}
}

// Walk calls fn for the item and each of its socketed items.
func (it *Item) Walk(fn func(*Item)) {
	fn(it)
	for i := range it.SocketedItems {
		it.SocketedItems[i].Walk(fn)
	}
}
