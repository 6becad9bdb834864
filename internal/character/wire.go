package character

// itemWire is the flat interchange shape of an item. Fields without
// omitempty are required on every item.
type itemWire struct {
	Identified       uint8   `json:"identified"`
	Socketed         uint8   `json:"socketed"`
	New              uint8   `json:"new"`
	IsEar            uint8   `json:"is_ear"`
	StarterItem      uint8   `json:"starter_item"`
	SimpleItem       uint8   `json:"simple_item"`
	Ethereal         uint8   `json:"ethereal"`
	Personalized     uint8   `json:"personalized"`
	PersonalizedName *string `json:"personalized_name,omitempty"`
	GivenRuneword    uint8   `json:"given_runeword"`
	Version          string  `json:"version"`

	LocationID    uint8 `json:"location_id"`
	EquippedID    uint8 `json:"equipped_id"`
	PositionX     uint8 `json:"position_x"`
	PositionY     uint8 `json:"position_y"`
	AltPositionID uint8 `json:"alt_position_id"`

	Type               string `json:"type"`
	TypeID             uint8  `json:"type_id"`
	TypeName           string `json:"type_name"`
	QuestDifficulty    *uint8 `json:"quest_difficulty,omitempty"`
	NrOfItemsInSockets uint8  `json:"nr_of_items_in_sockets"`

	ID               *uint32 `json:"id,omitempty"`
	Level            *uint8  `json:"level,omitempty"`
	Quality          *uint8  `json:"quality,omitempty"`
	MultiplePictures *uint8  `json:"multiple_pictures,omitempty"`
	PictureID        *uint8  `json:"picture_id,omitempty"`
	ClassSpecific    *uint8  `json:"class_specific,omitempty"`
	LowQualityID     *uint8  `json:"low_quality_id,omitempty"`
	Timestamp        *uint8  `json:"timestamp,omitempty"`

	DefenseRating     *uint16 `json:"defense_rating,omitempty"`
	MaxDurability     *uint16 `json:"max_durability,omitempty"`
	CurrentDurability *uint16 `json:"current_durability,omitempty"`
	TotalNrOfSockets  *uint8  `json:"total_nr_of_sockets,omitempty"`
	Quantity          *uint16 `json:"quantity,omitempty"`

	MagicPrefix     *uint16 `json:"magic_prefix,omitempty"`
	MagicPrefixName *string `json:"magic_prefix_name,omitempty"`
	MagicSuffix     *uint16 `json:"magic_suffix,omitempty"`
	MagicSuffixName *string `json:"magic_suffix_name,omitempty"`

	RunewordID         *uint16         `json:"runeword_id,omitempty"`
	RunewordName       *string         `json:"runeword_name,omitempty"`
	RunewordAttributes []MagicProperty `json:"runeword_attributes,omitempty"`

	SetID               *uint16           `json:"set_id,omitempty"`
	SetName             *string           `json:"set_name,omitempty"`
	SetListCount        *uint8            `json:"set_list_count,omitempty"`
	SetAttributes       [][]MagicProperty `json:"set_attributes,omitempty"`
	SetAttributesNumReq *uint8            `json:"set_attributes_num_req,omitempty"`
	SetAttributesIDsReq *uint8            `json:"set_attributes_ids_req,omitempty"`

	RareName       *string   `json:"rare_name,omitempty"`
	RareName2      *string   `json:"rare_name2,omitempty"`
	RareNameID     *uint8    `json:"rare_name_id,omitempty"`
	RareNameID2    *uint8    `json:"rare_name_id2,omitempty"`
	MagicalNameIDs []*uint16 `json:"magical_name_ids,omitempty"`

	UniqueID   *uint16 `json:"unique_id,omitempty"`
	UniqueName *string `json:"unique_name,omitempty"`

	MagicAttributes         []MagicProperty `json:"magic_attributes,omitempty"`
	CombinedMagicAttributes []MagicProperty `json:"combined_magic_attributes,omitempty"`
	SocketedItems           []itemWire      `json:"socketed_items,omitempty"`

	BaseDamage *WeaponDamage `json:"base_damage,omitempty"`
	ReqStr     *uint16       `json:"reqstr,omitempty"`
	ReqDex     *uint16       `json:"reqdex,omitempty"`

	InvWidth       uint8    `json:"inv_width"`
	InvHeight      uint8    `json:"inv_height"`
	InvFile        string   `json:"inv_file"`
	InvTransform   *uint8   `json:"inv_transform,omitempty"`
	TransformColor *string  `json:"transform_color,omitempty"`
	ItemQuality    *uint8   `json:"item_quality,omitempty"`
	Categories     []string `json:"categories"`
	FileIndex      *uint8   `json:"file_index,omitempty"`
	AutoAffixID    *uint8   `json:"auto_affix_id,omitempty"`

	DisplayedMagicAttributes         []MagicProperty `json:"displayed_magic_attributes,omitempty"`
	DisplayedRunewordAttributes      []MagicProperty `json:"displayed_runeword_attributes,omitempty"`
	DisplayedCombinedMagicAttributes []MagicProperty `json:"displayed_combined_magic_attributes,omitempty"`
}

type dataWire struct {
	Header      Header     `json:"header"`
	Attributes  Attributes `json:"attributes"`
	Items       []itemWire `json:"items"`
	CorpseItems []itemWire `json:"corpse_items"`
	MercItems   []itemWire `json:"merc_items"`
}

func flag(path string, v uint8) (bool, error) {
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fieldErrorf(path, "expected 0 or 1, got %d", v)
	}
}

func byteFlag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func itemsFromWire(ws []itemWire, path string, nested bool) ([]Item, error) {
	items := make([]Item, 0, len(ws))
	for i := range ws {
		item, err := itemFromWire(&ws[i], joinIndex(path, i), nested)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func itemFromWire(w *itemWire, path string, nested bool) (Item, error) {
	var it Item
	flags := []struct {
		name string
		raw  uint8
		dst  *bool
	}{
		{"identified", w.Identified, &it.Identified},
		{"socketed", w.Socketed, &it.Socketed},
		{"new", w.New, &it.New},
		{"is_ear", w.IsEar, &it.IsEar},
		{"starter_item", w.StarterItem, &it.StarterItem},
		{"simple_item", w.SimpleItem, &it.SimpleItem},
		{"ethereal", w.Ethereal, &it.Ethereal},
		{"personalized", w.Personalized, &it.Personalized},
		{"given_runeword", w.GivenRuneword, &it.GivenRuneword},
	}
	for _, f := range flags {
		v, err := flag(joinField(path, f.name), f.raw)
		if err != nil {
			return Item{}, err
		}
		*f.dst = v
	}

	it.PersonalizedName = w.PersonalizedName
	it.Version = w.Version
	it.LocationID = w.LocationID
	it.EquippedID = w.EquippedID
	it.PositionX = w.PositionX
	it.PositionY = w.PositionY
	it.AltPositionID = w.AltPositionID
	it.Type = w.Type
	it.TypeID = w.TypeID
	it.TypeName = w.TypeName
	it.Categories = w.Categories
	it.QuestDifficulty = w.QuestDifficulty
	it.NrOfItemsInSockets = w.NrOfItemsInSockets
	it.InvWidth = w.InvWidth
	it.InvHeight = w.InvHeight
	it.InvFile = w.InvFile
	it.InvTransform = w.InvTransform
	it.TransformColor = w.TransformColor

	if w.ItemQuality != nil {
		tier, err := ParseItemQuality(*w.ItemQuality)
		if err != nil {
			return Item{}, fieldErrorf(joinField(path, "item_quality"), "%v", err)
		}
		it.Tier = &tier
	}

	if !it.SimpleItem {
		ext, err := extendedFromWire(w, path)
		if err != nil {
			return Item{}, err
		}
		it.Extended = ext
	}

	if it.GivenRuneword {
		it.Runeword = &Runeword{
			ID:                  w.RunewordID,
			Name:                w.RunewordName,
			Attributes:          w.RunewordAttributes,
			DisplayedAttributes: w.DisplayedRunewordAttributes,
		}
	}

	if len(w.SocketedItems) > 0 {
		socketsPath := joinField(path, "socketed_items")
		if nested {
			return Item{}, fieldErrorf(socketsPath, "socketed items cannot contain socketed items")
		}
		children, err := itemsFromWire(w.SocketedItems, socketsPath, true)
		if err != nil {
			return Item{}, err
		}
		it.SocketedItems = children
	}

	return it, nil
}

func extendedFromWire(w *itemWire, path string) (*ExtendedItem, error) {
	if w.Quality == nil {
		return nil, fieldErrorf(joinField(path, "quality"), "missing quality on extended item")
	}

	ext := &ExtendedItem{
		ID:                               w.ID,
		Level:                            w.Level,
		MultiplePictures:                 w.MultiplePictures,
		PictureID:                        w.PictureID,
		ClassSpecific:                    w.ClassSpecific,
		AutoAffixID:                      w.AutoAffixID,
		Timestamp:                        w.Timestamp,
		DefenseRating:                    w.DefenseRating,
		MaxDurability:                    w.MaxDurability,
		CurrentDurability:                w.CurrentDurability,
		Quantity:                         w.Quantity,
		TotalSockets:                     w.TotalNrOfSockets,
		ReqStr:                           w.ReqStr,
		ReqDex:                           w.ReqDex,
		BaseDamage:                       w.BaseDamage,
		MagicAttributes:                  w.MagicAttributes,
		CombinedMagicAttributes:          w.CombinedMagicAttributes,
		DisplayedMagicAttributes:         w.DisplayedMagicAttributes,
		DisplayedCombinedMagicAttributes: w.DisplayedCombinedMagicAttributes,
	}

	rare := RareNames{
		Name:           w.RareName,
		Name2:          w.RareName2,
		NameID:         w.RareNameID,
		NameID2:        w.RareNameID2,
		MagicalNameIDs: w.MagicalNameIDs,
	}

	switch Quality(*w.Quality) {
	case QualityLow:
		ext.Variant = LowQualityItem{LowQualityID: w.LowQualityID}
	case QualityNormal:
		ext.Variant = NormalItem{}
	case QualitySuperior:
		ext.Variant = SuperiorItem{FileIndex: w.FileIndex}
	case QualityMagic:
		ext.Variant = MagicItem{
			Prefix: affix(w.MagicPrefix, w.MagicPrefixName),
			Suffix: affix(w.MagicSuffix, w.MagicSuffixName),
		}
	case QualitySet:
		if len(w.SetAttributes) == 0 {
			return nil, fieldErrorf(joinField(path, "set_attributes"), "set item requires set attributes")
		}
		ext.Variant = SetItem{
			ID:         w.SetID,
			Name:       w.SetName,
			ListCount:  w.SetListCount,
			Attributes: w.SetAttributes,
			NumReq:     w.SetAttributesNumReq,
			IDsReq:     w.SetAttributesIDsReq,
		}
	case QualityRare:
		ext.Variant = RareItem{RareNames: rare}
	case QualityUnique:
		ext.Variant = UniqueItem{ID: w.UniqueID, Name: w.UniqueName}
	case QualityCrafted:
		ext.Variant = CraftedItem{RareNames: rare}
	default:
		return nil, fieldErrorf(joinField(path, "quality"), "unknown item quality %d", *w.Quality)
	}

	return ext, nil
}

func affix(id *uint16, name *string) *Affix {
	if id == nil {
		return nil
	}
	return &Affix{ID: *id, Name: name}
}

func itemsToWire(items []Item) []itemWire {
	ws := make([]itemWire, 0, len(items))
	for i := range items {
		ws = append(ws, items[i].toWire())
	}
	return ws
}

func (it *Item) toWire() itemWire {
	w := itemWire{
		Identified:         byteFlag(it.Identified),
		Socketed:           byteFlag(it.Socketed),
		New:                byteFlag(it.New),
		IsEar:              byteFlag(it.IsEar),
		StarterItem:        byteFlag(it.StarterItem),
		SimpleItem:         byteFlag(it.SimpleItem),
		Ethereal:           byteFlag(it.Ethereal),
		Personalized:       byteFlag(it.Personalized),
		PersonalizedName:   it.PersonalizedName,
		GivenRuneword:      byteFlag(it.GivenRuneword),
		Version:            it.Version,
		LocationID:         it.LocationID,
		EquippedID:         it.EquippedID,
		PositionX:          it.PositionX,
		PositionY:          it.PositionY,
		AltPositionID:      it.AltPositionID,
		Type:               it.Type,
		TypeID:             it.TypeID,
		TypeName:           it.TypeName,
		QuestDifficulty:    it.QuestDifficulty,
		NrOfItemsInSockets: it.NrOfItemsInSockets,
		InvWidth:           it.InvWidth,
		InvHeight:          it.InvHeight,
		InvFile:            it.InvFile,
		InvTransform:       it.InvTransform,
		TransformColor:     it.TransformColor,
		Categories:         it.Categories,
	}
	if w.Categories == nil {
		w.Categories = []string{}
	}
	if it.Tier != nil {
		tier := uint8(*it.Tier)
		w.ItemQuality = &tier
	}

	if ext := it.Extended; ext != nil {
		w.ID = ext.ID
		w.Level = ext.Level
		w.MultiplePictures = ext.MultiplePictures
		w.PictureID = ext.PictureID
		w.ClassSpecific = ext.ClassSpecific
		w.AutoAffixID = ext.AutoAffixID
		w.Timestamp = ext.Timestamp
		w.DefenseRating = ext.DefenseRating
		w.MaxDurability = ext.MaxDurability
		w.CurrentDurability = ext.CurrentDurability
		w.Quantity = ext.Quantity
		w.TotalNrOfSockets = ext.TotalSockets
		w.ReqStr = ext.ReqStr
		w.ReqDex = ext.ReqDex
		w.BaseDamage = ext.BaseDamage
		w.MagicAttributes = ext.MagicAttributes
		w.CombinedMagicAttributes = ext.CombinedMagicAttributes
		w.DisplayedMagicAttributes = ext.DisplayedMagicAttributes
		w.DisplayedCombinedMagicAttributes = ext.DisplayedCombinedMagicAttributes

		if ext.Variant != nil {
			q := uint8(ext.Variant.Quality())
			w.Quality = &q
		}
		switch v := ext.Variant.(type) {
		case LowQualityItem:
			w.LowQualityID = v.LowQualityID
		case SuperiorItem:
			w.FileIndex = v.FileIndex
		case MagicItem:
			if v.Prefix != nil {
				w.MagicPrefix, w.MagicPrefixName = &v.Prefix.ID, v.Prefix.Name
			}
			if v.Suffix != nil {
				w.MagicSuffix, w.MagicSuffixName = &v.Suffix.ID, v.Suffix.Name
			}
		case SetItem:
			w.SetID = v.ID
			w.SetName = v.Name
			w.SetListCount = v.ListCount
			w.SetAttributes = v.Attributes
			w.SetAttributesNumReq = v.NumReq
			w.SetAttributesIDsReq = v.IDsReq
		case RareItem:
			v.RareNames.toWire(&w)
		case CraftedItem:
			v.RareNames.toWire(&w)
		case UniqueItem:
			w.UniqueID = v.ID
			w.UniqueName = v.Name
		}
	}

	if rw := it.Runeword; rw != nil {
		w.RunewordID = rw.ID
		w.RunewordName = rw.Name
		w.RunewordAttributes = rw.Attributes
		w.DisplayedRunewordAttributes = rw.DisplayedAttributes
	}

	if len(it.SocketedItems) > 0 {
		w.SocketedItems = itemsToWire(it.SocketedItems)
	}
	return w
}

func (r RareNames) toWire(w *itemWire) {
	w.RareName = r.Name
	w.RareName2 = r.Name2
	w.RareNameID = r.NameID
	w.RareNameID2 = r.NameID2
	w.MagicalNameIDs = r.MagicalNameIDs
}
