package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	maxHotelNameLength    = 200
	maxRoomTypeNameLength = 100
	maxFacilityNameLength = 100
	maxRoomNumberLength   = 10
)

// HotelInput is the admin hotel form.
type HotelInput struct {
	Name        string
	Address     string
	Region      Region
	Description string
	StarRating  StarRating
	FacilityIDs []FacilityID
}

// RoomTypeInput is the admin room type form.
type RoomTypeInput struct {
	HotelID     HotelID
	Name        string
	Description string
	BasePrice   Money
}

// FacilityInput is the admin facility form.
type FacilityInput struct {
	Name string
	Icon string
}

// RoomInput is the admin room form.
type RoomInput struct {
	HotelID     HotelID
	RoomTypeID  RoomTypeID
	Number      string
	IsAvailable bool
	FacilityIDs []FacilityID
}

// Catalog manages hotels and their inventory.
type Catalog struct {
	store   CatalogStore
	nowFn   func() time.Time
	options serviceOptions
}

// NewCatalog wires a Catalog.
func NewCatalog(store CatalogStore, clock func() time.Time, options ...ServiceOption) (*Catalog, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: catalog store dependency is nil", ErrInvalidServiceConfig)
	}
	if clock == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	resolved, err := buildOptions(options)
	if err != nil {
		return nil, err
	}
	return &Catalog{store: store, nowFn: clock, options: resolved}, nil
}

// GetHotel returns one hotel with its facilities.
func (catalog *Catalog) GetHotel(ctx context.Context, hotelID HotelID) (Hotel, error) {
	return catalog.store.GetHotel(ctx, hotelID)
}

// SearchHotels filters hotels by name, region and minimum star rating.
func (catalog *Catalog) SearchHotels(ctx context.Context, query HotelQuery) ([]Hotel, error) {
	query.Name = strings.TrimSpace(query.Name)
	query.Page = query.Page.Normalize()
	return catalog.store.SearchHotels(ctx, query)
}

// CreateHotel adds a hotel; its average rating starts at zero.
func (catalog *Catalog) CreateHotel(ctx context.Context, principal Principal, input HotelInput) (Hotel, error) {
	var created Hotel
	operationError := func() error {
		if err := principal.requireStaff(); err != nil {
			return err
		}
		normalized, err := validateHotelInput(input)
		if err != nil {
			return err
		}
		return catalog.store.WithTx(ctx, func(ctx context.Context, transactionStore CatalogStore) error {
			if err := ensureFacilitiesExist(ctx, transactionStore, normalized.FacilityIDs); err != nil {
				return err
			}
			created, err = transactionStore.CreateHotel(ctx, Hotel{
				Name:        normalized.Name,
				Address:     normalized.Address,
				Region:      normalized.Region,
				Description: normalized.Description,
				StarRating:  normalized.StarRating,
				CreatedAt:   catalog.nowFn().UTC(),
			})
			if err != nil {
				return err
			}
			if err := transactionStore.SetHotelFacilities(ctx, created.ID, normalized.FacilityIDs); err != nil {
				return err
			}
			created.FacilityIDs = normalized.FacilityIDs
			return nil
		})
	}()
	catalog.options.logOperation(ctx, OperationLog{
		Operation: operationCreateHotel,
		Actor:     principal.Subject(),
		HotelID:   created.ID,
		Detail:    input.Name,
		Error:     operationError,
	})
	if operationError != nil {
		return Hotel{}, operationError
	}
	return created, nil
}

// UpdateHotel replaces the editable hotel fields; the average rating is never taken from input.
func (catalog *Catalog) UpdateHotel(ctx context.Context, principal Principal, hotelID HotelID, input HotelInput) (Hotel, error) {
	var updated Hotel
	operationError := func() error {
		if err := principal.requireStaff(); err != nil {
			return err
		}
		normalized, err := validateHotelInput(input)
		if err != nil {
			return err
		}
		return catalog.store.WithTx(ctx, func(ctx context.Context, transactionStore CatalogStore) error {
			existing, err := transactionStore.GetHotel(ctx, hotelID)
			if err != nil {
				return err
			}
			if err := ensureFacilitiesExist(ctx, transactionStore, normalized.FacilityIDs); err != nil {
				return err
			}
			existing.Name = normalized.Name
			existing.Address = normalized.Address
			existing.Region = normalized.Region
			existing.Description = normalized.Description
			existing.StarRating = normalized.StarRating
			if err := transactionStore.UpdateHotel(ctx, existing); err != nil {
				return err
			}
			if err := transactionStore.SetHotelFacilities(ctx, hotelID, normalized.FacilityIDs); err != nil {
				return err
			}
			existing.FacilityIDs = normalized.FacilityIDs
			updated = existing
			return nil
		})
	}()
	catalog.options.logOperation(ctx, OperationLog{
		Operation: operationUpdateHotel,
		Actor:     principal.Subject(),
		HotelID:   hotelID,
		Error:     operationError,
	})
	if operationError != nil {
		return Hotel{}, operationError
	}
	return updated, nil
}

// ListRoomTypes returns room types ordered by name.
func (catalog *Catalog) ListRoomTypes(ctx context.Context, query RoomTypeQuery) ([]RoomType, error) {
	query.Name = strings.TrimSpace(query.Name)
	return catalog.store.ListRoomTypes(ctx, query)
}

// GetRoomType returns one room type.
func (catalog *Catalog) GetRoomType(ctx context.Context, roomTypeID RoomTypeID) (RoomType, error) {
	return catalog.store.GetRoomType(ctx, roomTypeID)
}

// CreateRoomType adds a priced room type to a hotel.
func (catalog *Catalog) CreateRoomType(ctx context.Context, principal Principal, input RoomTypeInput) (RoomType, error) {
	var created RoomType
	operationError := func() error {
		if err := principal.requireStaff(); err != nil {
			return err
		}
		normalized, err := validateRoomTypeInput(input)
		if err != nil {
			return err
		}
		return catalog.store.WithTx(ctx, func(ctx context.Context, transactionStore CatalogStore) error {
			if _, err := transactionStore.GetHotel(ctx, normalized.HotelID); err != nil {
				return err
			}
			created, err = transactionStore.CreateRoomType(ctx, RoomType{
				HotelID:     normalized.HotelID,
				Name:        normalized.Name,
				Description: normalized.Description,
				BasePrice:   normalized.BasePrice,
			})
			return err
		})
	}()
	catalog.options.logOperation(ctx, OperationLog{
		Operation: operationCreateRoomType,
		Actor:     principal.Subject(),
		HotelID:   input.HotelID,
		Detail:    input.Name,
		Error:     operationError,
	})
	if operationError != nil {
		return RoomType{}, operationError
	}
	return created, nil
}

// UpdateRoomType changes a room type's name, description or price; existing totals are untouched.
func (catalog *Catalog) UpdateRoomType(ctx context.Context, principal Principal, roomTypeID RoomTypeID, input RoomTypeInput) (RoomType, error) {
	var updated RoomType
	operationError := func() error {
		if err := principal.requireStaff(); err != nil {
			return err
		}
		normalized, err := validateRoomTypeInput(input)
		if err != nil {
			return err
		}
		return catalog.store.WithTx(ctx, func(ctx context.Context, transactionStore CatalogStore) error {
			existing, err := transactionStore.GetRoomType(ctx, roomTypeID)
			if err != nil {
				return err
			}
			if existing.HotelID != normalized.HotelID {
				return ValidationErrors{{Field: "hotel", Err: ErrRoomTypeHotelMismatch}}
			}
			existing.Name = normalized.Name
			existing.Description = normalized.Description
			existing.BasePrice = normalized.BasePrice
			if err := transactionStore.UpdateRoomType(ctx, existing); err != nil {
				return err
			}
			updated = existing
			return nil
		})
	}()
	catalog.options.logOperation(ctx, OperationLog{
		Operation: operationUpdateRoomType,
		Actor:     principal.Subject(),
		HotelID:   input.HotelID,
		Detail:    fmt.Sprintf("room type %d", roomTypeID),
		Error:     operationError,
	})
	if operationError != nil {
		return RoomType{}, operationError
	}
	return updated, nil
}

// ListFacilities returns facilities ordered by name, optionally filtered by a name fragment.
func (catalog *Catalog) ListFacilities(ctx context.Context, name string) ([]Facility, error) {
	return catalog.store.ListFacilities(ctx, strings.TrimSpace(name))
}

// CreateFacility adds an amenity.
func (catalog *Catalog) CreateFacility(ctx context.Context, principal Principal, input FacilityInput) (Facility, error) {
	var created Facility
	operationError := func() error {
		if err := principal.requireStaff(); err != nil {
			return err
		}
		name := strings.TrimSpace(input.Name)
		if name == "" || len(name) > maxFacilityNameLength {
			return ValidationErrors{{Field: "name", Err: fmt.Errorf("%w: %q", ErrInvalidName, input.Name)}}
		}
		var err error
		created, err = catalog.store.CreateFacility(ctx, Facility{Name: name, Icon: strings.TrimSpace(input.Icon)})
		return err
	}()
	catalog.options.logOperation(ctx, OperationLog{
		Operation: operationCreateFacility,
		Actor:     principal.Subject(),
		Detail:    input.Name,
		Error:     operationError,
	})
	if operationError != nil {
		return Facility{}, operationError
	}
	return created, nil
}

// GetRoom returns one room with its nightly rate.
func (catalog *Catalog) GetRoom(ctx context.Context, roomID RoomID) (Room, error) {
	return catalog.store.GetRoom(ctx, roomID)
}

// ListRooms returns rooms ordered by number.
func (catalog *Catalog) ListRooms(ctx context.Context, query RoomQuery) ([]Room, error) {
	query.Number = strings.TrimSpace(query.Number)
	query.Page = query.Page.Normalize()
	return catalog.store.ListRooms(ctx, query)
}

// BookableRooms lists the rooms of a hotel that are offered for booking.
func (catalog *Catalog) BookableRooms(ctx context.Context, hotelID HotelID) ([]Room, error) {
	available := true
	return catalog.ListRooms(ctx, RoomQuery{HotelID: hotelID, Available: &available, Page: Page{Limit: maxListLimit}})
}

// CreateRoom adds a room whose number is unique within its hotel.
func (catalog *Catalog) CreateRoom(ctx context.Context, principal Principal, input RoomInput) (Room, error) {
	var created Room
	operationError := func() error {
		if err := principal.requireStaff(); err != nil {
			return err
		}
		normalized, err := validateRoomInput(input)
		if err != nil {
			return err
		}
		return catalog.store.WithTx(ctx, func(ctx context.Context, transactionStore CatalogStore) error {
			roomType, err := checkRoomPlacement(ctx, transactionStore, normalized, 0)
			if err != nil {
				return err
			}
			created, err = transactionStore.CreateRoom(ctx, Room{
				HotelID:     normalized.HotelID,
				RoomTypeID:  normalized.RoomTypeID,
				Number:      normalized.Number,
				IsAvailable: normalized.IsAvailable,
				FacilityIDs: normalized.FacilityIDs,
				NightlyRate: roomType.BasePrice,
			})
			return err
		})
	}()
	catalog.options.logOperation(ctx, OperationLog{
		Operation: operationCreateRoom,
		Actor:     principal.Subject(),
		HotelID:   input.HotelID,
		RoomID:    created.ID,
		Detail:    input.Number,
		Error:     operationError,
	})
	if operationError != nil {
		return Room{}, operationError
	}
	return created, nil
}

// UpdateRoom edits a room within its hotel; availability changes never touch existing reservations.
func (catalog *Catalog) UpdateRoom(ctx context.Context, principal Principal, roomID RoomID, input RoomInput) (Room, error) {
	var updated Room
	operationError := func() error {
		if err := principal.requireStaff(); err != nil {
			return err
		}
		normalized, err := validateRoomInput(input)
		if err != nil {
			return err
		}
		return catalog.store.WithTx(ctx, func(ctx context.Context, transactionStore CatalogStore) error {
			existing, err := transactionStore.GetRoom(ctx, roomID)
			if err != nil {
				return err
			}
			if existing.HotelID != normalized.HotelID {
				return ValidationErrors{{Field: "hotel", Err: ErrRoomHotelChange}}
			}
			roomType, err := checkRoomPlacement(ctx, transactionStore, normalized, roomID)
			if err != nil {
				return err
			}
			updated = Room{
				ID:          roomID,
				HotelID:     normalized.HotelID,
				RoomTypeID:  normalized.RoomTypeID,
				Number:      normalized.Number,
				IsAvailable: normalized.IsAvailable,
				FacilityIDs: normalized.FacilityIDs,
				NightlyRate: roomType.BasePrice,
			}
			return transactionStore.UpdateRoom(ctx, updated)
		})
	}()
	catalog.options.logOperation(ctx, OperationLog{
		Operation: operationUpdateRoom,
		Actor:     principal.Subject(),
		HotelID:   input.HotelID,
		RoomID:    roomID,
		Error:     operationError,
	})
	if operationError != nil {
		return Room{}, operationError
	}
	return updated, nil
}

// ListGalleryImages returns a hotel's photos, oldest first.
func (catalog *Catalog) ListGalleryImages(ctx context.Context, hotelID HotelID) ([]GalleryImage, error) {
	return catalog.store.ListGalleryImages(ctx, hotelID)
}

// AddGalleryImage attaches an already stored blob to a hotel.
func (catalog *Catalog) AddGalleryImage(ctx context.Context, principal Principal, hotelID HotelID, blobRef string, caption string) (GalleryImage, error) {
	var created GalleryImage
	operationError := func() error {
		if err := principal.requireStaff(); err != nil {
			return err
		}
		if strings.TrimSpace(blobRef) == "" {
			return ValidationErrors{{Field: "image", Err: ErrMissingFile}}
		}
		return catalog.store.WithTx(ctx, func(ctx context.Context, transactionStore CatalogStore) error {
			if _, err := transactionStore.GetHotel(ctx, hotelID); err != nil {
				return err
			}
			var err error
			created, err = transactionStore.AddGalleryImage(ctx, GalleryImage{
				HotelID:   hotelID,
				BlobRef:   blobRef,
				Caption:   strings.TrimSpace(caption),
				CreatedAt: catalog.nowFn().UTC(),
			})
			return err
		})
	}()
	catalog.options.logOperation(ctx, OperationLog{
		Operation: operationAddGalleryImage,
		Actor:     principal.Subject(),
		HotelID:   hotelID,
		Detail:    blobRef,
		Error:     operationError,
	})
	if operationError != nil {
		return GalleryImage{}, operationError
	}
	return created, nil
}

func validateHotelInput(input HotelInput) (HotelInput, error) {
	var validationErrors ValidationErrors
	normalized := HotelInput{
		Name:        strings.TrimSpace(input.Name),
		Address:     strings.TrimSpace(input.Address),
		Description: strings.TrimSpace(input.Description),
		StarRating:  input.StarRating,
		FacilityIDs: dedupeFacilityIDs(input.FacilityIDs),
	}
	if normalized.Name == "" || len(normalized.Name) > maxHotelNameLength {
		validationErrors.add("name", fmt.Errorf("%w: %q", ErrInvalidName, input.Name))
	}
	region, err := ParseRegion(string(input.Region))
	validationErrors.add("region", err)
	normalized.Region = region
	_, err = NewStarRating(int(input.StarRating))
	validationErrors.add("star_rating", err)
	if err := validationErrors.orNil(); err != nil {
		return HotelInput{}, err
	}
	return normalized, nil
}

func validateRoomTypeInput(input RoomTypeInput) (RoomTypeInput, error) {
	var validationErrors ValidationErrors
	normalized := RoomTypeInput{
		HotelID:     input.HotelID,
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		BasePrice:   input.BasePrice,
	}
	if normalized.HotelID == 0 {
		validationErrors.add("hotel", ErrInvalidHotelID)
	}
	if normalized.Name == "" || len(normalized.Name) > maxRoomTypeNameLength {
		validationErrors.add("name", fmt.Errorf("%w: %q", ErrInvalidName, input.Name))
	}
	if !normalized.BasePrice.Decimal().IsPositive() {
		validationErrors.add("base_price", fmt.Errorf("%w: %s", ErrInvalidPrice, normalized.BasePrice))
	}
	if err := validationErrors.orNil(); err != nil {
		return RoomTypeInput{}, err
	}
	return normalized, nil
}

func validateRoomInput(input RoomInput) (RoomInput, error) {
	var validationErrors ValidationErrors
	normalized := RoomInput{
		HotelID:     input.HotelID,
		RoomTypeID:  input.RoomTypeID,
		Number:      strings.TrimSpace(input.Number),
		IsAvailable: input.IsAvailable,
		FacilityIDs: dedupeFacilityIDs(input.FacilityIDs),
	}
	if normalized.HotelID == 0 {
		validationErrors.add("hotel", ErrInvalidHotelID)
	}
	if normalized.RoomTypeID == 0 {
		validationErrors.add("room_type", ErrInvalidRoomTypeID)
	}
	if normalized.Number == "" || len(normalized.Number) > maxRoomNumberLength {
		validationErrors.add("number", fmt.Errorf("%w: %q", ErrInvalidRoomNumber, input.Number))
	}
	if err := validationErrors.orNil(); err != nil {
		return RoomInput{}, err
	}
	return normalized, nil
}

// checkRoomPlacement enforces the room-type/hotel pairing and per-hotel number uniqueness.
func checkRoomPlacement(ctx context.Context, transactionStore CatalogStore, input RoomInput, exclude RoomID) (RoomType, error) {
	roomType, err := transactionStore.GetRoomType(ctx, input.RoomTypeID)
	if errors.Is(err, ErrUnknownRoomType) {
		return RoomType{}, ValidationErrors{{Field: "room_type", Err: err}}
	}
	if err != nil {
		return RoomType{}, err
	}
	if roomType.HotelID != input.HotelID {
		return RoomType{}, ValidationErrors{{Field: "room_type", Err: ErrRoomTypeHotelMismatch}}
	}
	taken, err := transactionStore.RoomNumberTaken(ctx, input.HotelID, input.Number, exclude)
	if err != nil {
		return RoomType{}, err
	}
	if taken {
		return RoomType{}, fmt.Errorf("%w: %s", ErrDuplicateRoomNumber, input.Number)
	}
	if err := ensureFacilitiesExist(ctx, transactionStore, input.FacilityIDs); err != nil {
		return RoomType{}, err
	}
	return roomType, nil
}

func ensureFacilitiesExist(ctx context.Context, transactionStore CatalogStore, facilityIDs []FacilityID) error {
	if len(facilityIDs) == 0 {
		return nil
	}
	found, err := transactionStore.CountFacilities(ctx, facilityIDs)
	if err != nil {
		return err
	}
	if found != int64(len(facilityIDs)) {
		return ValidationErrors{{Field: "facilities", Err: ErrUnknownFacility}}
	}
	return nil
}

func dedupeFacilityIDs(facilityIDs []FacilityID) []FacilityID {
	seen := make(map[FacilityID]struct{}, len(facilityIDs))
	unique := make([]FacilityID, 0, len(facilityIDs))
	for _, facilityID := range facilityIDs {
		if facilityID == 0 {
			continue
		}
		if _, exists := seen[facilityID]; exists {
			continue
		}
		seen[facilityID] = struct{}{}
		unique = append(unique, facilityID)
	}
	return unique
}
