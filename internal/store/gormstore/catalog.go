package gormstore

import (
	"context"
	"strings"

	"github.com/MarkoPoloResearchLab/hotelbook/pkg/booking"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogStore implements booking.CatalogStore using GORM.
type CatalogStore struct {
	db *gorm.DB
}

// NewCatalog returns a CatalogStore backed by gorm.DB.
func NewCatalog(db *gorm.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

// WithTx executes fn within a transaction.
func (store *CatalogStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore booking.CatalogStore) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &CatalogStore{db: transaction})
	})
}

func (store *CatalogStore) CreateHotel(ctx context.Context, hotel booking.Hotel) (booking.Hotel, error) {
	model := Hotel{
		Name:        hotel.Name,
		Address:     hotel.Address,
		Region:      hotel.Region.String(),
		Description: hotel.Description,
		StarRating:  int(hotel.StarRating),
		CreatedAt:   hotel.CreatedAt,
	}
	if err := store.db.WithContext(ctx).Omit(clause.Associations).Create(&model).Error; err != nil {
		return booking.Hotel{}, wrapStoreError(errorSubjectHotel, errorCodeCreate, err)
	}
	hotel.ID = booking.HotelID(model.ID)
	hotel.AverageRating = 0
	return hotel, nil
}

// UpdateHotel never writes average_rating, which only the rating aggregator maintains.
func (store *CatalogStore) UpdateHotel(ctx context.Context, hotel booking.Hotel) error {
	result := store.db.WithContext(ctx).
		Model(&Hotel{}).
		Where("id = ?", uint64(hotel.ID)).
		Updates(map[string]interface{}{
			"name":        hotel.Name,
			"address":     hotel.Address,
			"region":      hotel.Region.String(),
			"description": hotel.Description,
			"star_rating": int(hotel.StarRating),
		})
	return rowsOrMissing(result, errorSubjectHotel, booking.ErrUnknownHotel)
}

func (store *CatalogStore) GetHotel(ctx context.Context, hotelID booking.HotelID) (booking.Hotel, error) {
	var model Hotel
	err := store.db.WithContext(ctx).Preload("Facilities").Where("id = ?", uint64(hotelID)).Take(&model).Error
	if err != nil {
		return booking.Hotel{}, notFoundOr(errorSubjectHotel, errorCodeGet, err, booking.ErrUnknownHotel)
	}
	return mapHotel(model), nil
}

func (store *CatalogStore) SearchHotels(ctx context.Context, query booking.HotelQuery) ([]booking.Hotel, error) {
	statement := store.db.WithContext(ctx).Model(&Hotel{}).Preload("Facilities")
	if query.Name != "" {
		statement = statement.Where("LOWER(name) LIKE ?", likePattern(query.Name))
	}
	if query.Region != "" {
		statement = statement.Where("region = ?", query.Region.String())
	}
	if query.MinStarRating > 0 {
		statement = statement.Where("star_rating >= ?", int(query.MinStarRating))
	}
	var rows []Hotel
	err := statement.
		Order("name ASC").
		Order("id ASC").
		Limit(query.Page.Limit).
		Offset(query.Page.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectHotel, errorCodeList, err)
	}
	hotels := make([]booking.Hotel, 0, len(rows))
	for _, row := range rows {
		hotels = append(hotels, mapHotel(row))
	}
	return hotels, nil
}

func (store *CatalogStore) SetHotelFacilities(ctx context.Context, hotelID booking.HotelID, facilityIDs []booking.FacilityID) error {
	model := Hotel{ID: uint64(hotelID)}
	if err := store.db.WithContext(ctx).Model(&model).Association("Facilities").Replace(facilityModels(facilityIDs)); err != nil {
		return wrapStoreError(errorSubjectHotel, errorCodeUpdate, err)
	}
	return nil
}

func (store *CatalogStore) CreateRoomType(ctx context.Context, roomType booking.RoomType) (booking.RoomType, error) {
	model := RoomType{
		HotelID:     uint64(roomType.HotelID),
		Name:        roomType.Name,
		Description: roomType.Description,
		BasePrice:   roomType.BasePrice.Decimal(),
	}
	if err := store.db.WithContext(ctx).Omit(clause.Associations).Create(&model).Error; err != nil {
		return booking.RoomType{}, wrapStoreError(errorSubjectRoomType, errorCodeCreate, err)
	}
	roomType.ID = booking.RoomTypeID(model.ID)
	return roomType, nil
}

func (store *CatalogStore) UpdateRoomType(ctx context.Context, roomType booking.RoomType) error {
	result := store.db.WithContext(ctx).
		Model(&RoomType{}).
		Where("id = ?", uint64(roomType.ID)).
		Updates(map[string]interface{}{
			"name":        roomType.Name,
			"description": roomType.Description,
			"base_price":  roomType.BasePrice.Decimal(),
		})
	return rowsOrMissing(result, errorSubjectRoomType, booking.ErrUnknownRoomType)
}

func (store *CatalogStore) GetRoomType(ctx context.Context, roomTypeID booking.RoomTypeID) (booking.RoomType, error) {
	var model RoomType
	if err := store.db.WithContext(ctx).Where("id = ?", uint64(roomTypeID)).Take(&model).Error; err != nil {
		return booking.RoomType{}, notFoundOr(errorSubjectRoomType, errorCodeGet, err, booking.ErrUnknownRoomType)
	}
	roomType, err := mapRoomType(model)
	if err != nil {
		return booking.RoomType{}, wrapStoreError(errorSubjectRoomType, errorCodeInvalid, err)
	}
	return roomType, nil
}

func (store *CatalogStore) ListRoomTypes(ctx context.Context, query booking.RoomTypeQuery) ([]booking.RoomType, error) {
	statement := store.db.WithContext(ctx).Model(&RoomType{})
	if query.HotelID != 0 {
		statement = statement.Where("hotel_id = ?", uint64(query.HotelID))
	}
	if query.Name != "" {
		statement = statement.Where("LOWER(name) LIKE ?", likePattern(query.Name))
	}
	var rows []RoomType
	if err := statement.Order("name ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectRoomType, errorCodeList, err)
	}
	roomTypes := make([]booking.RoomType, 0, len(rows))
	for _, row := range rows {
		roomType, err := mapRoomType(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectRoomType, errorCodeInvalid, err)
		}
		roomTypes = append(roomTypes, roomType)
	}
	return roomTypes, nil
}

func (store *CatalogStore) CreateFacility(ctx context.Context, facility booking.Facility) (booking.Facility, error) {
	model := Facility{Name: facility.Name, Icon: facility.Icon}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return booking.Facility{}, wrapStoreError(errorSubjectFacility, errorCodeCreate, err)
	}
	facility.ID = booking.FacilityID(model.ID)
	return facility, nil
}

func (store *CatalogStore) ListFacilities(ctx context.Context, name string) ([]booking.Facility, error) {
	statement := store.db.WithContext(ctx).Model(&Facility{})
	if name != "" {
		statement = statement.Where("LOWER(name) LIKE ?", likePattern(name))
	}
	var rows []Facility
	if err := statement.Order("name ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectFacility, errorCodeList, err)
	}
	facilities := make([]booking.Facility, 0, len(rows))
	for _, row := range rows {
		facilities = append(facilities, booking.Facility{ID: booking.FacilityID(row.ID), Name: row.Name, Icon: row.Icon})
	}
	return facilities, nil
}

func (store *CatalogStore) CountFacilities(ctx context.Context, facilityIDs []booking.FacilityID) (int64, error) {
	ids := make([]uint64, 0, len(facilityIDs))
	for _, facilityID := range facilityIDs {
		ids = append(ids, uint64(facilityID))
	}
	var count int64
	if err := store.db.WithContext(ctx).Model(&Facility{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return 0, wrapStoreError(errorSubjectFacility, errorCodeCount, err)
	}
	return count, nil
}

func (store *CatalogStore) RoomNumberTaken(ctx context.Context, hotelID booking.HotelID, number string, exclude booking.RoomID) (bool, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&Room{}).
		Where("hotel_id = ? AND number = ? AND id <> ?", uint64(hotelID), strings.TrimSpace(number), uint64(exclude)).
		Count(&count).Error
	if err != nil {
		return false, wrapStoreError(errorSubjectRoom, errorCodeLookup, err)
	}
	return count > 0, nil
}

func (store *CatalogStore) CreateRoom(ctx context.Context, room booking.Room) (booking.Room, error) {
	model := Room{
		HotelID:     uint64(room.HotelID),
		RoomTypeID:  uint64(room.RoomTypeID),
		Number:      room.Number,
		IsAvailable: room.IsAvailable,
	}
	err := store.db.WithContext(ctx).Omit(clause.Associations).Create(&model).Error
	if isUniqueViolation(err, constraintRoomNumber) {
		return booking.Room{}, wrapStoreError(errorSubjectRoom, errorCodeDuplicate, booking.ErrDuplicateRoomNumber)
	}
	if err != nil {
		return booking.Room{}, wrapStoreError(errorSubjectRoom, errorCodeCreate, err)
	}
	if err := store.setRoomFacilities(ctx, model.ID, room.FacilityIDs); err != nil {
		return booking.Room{}, err
	}
	room.ID = booking.RoomID(model.ID)
	return room, nil
}

func (store *CatalogStore) UpdateRoom(ctx context.Context, room booking.Room) error {
	result := store.db.WithContext(ctx).
		Model(&Room{}).
		Where("id = ?", uint64(room.ID)).
		Updates(map[string]interface{}{
			"room_type_id": uint64(room.RoomTypeID),
			"number":       room.Number,
			"is_available": room.IsAvailable,
		})
	if isUniqueViolation(result.Error, constraintRoomNumber) {
		return wrapStoreError(errorSubjectRoom, errorCodeDuplicate, booking.ErrDuplicateRoomNumber)
	}
	if err := rowsOrMissing(result, errorSubjectRoom, booking.ErrUnknownRoom); err != nil {
		return err
	}
	return store.setRoomFacilities(ctx, uint64(room.ID), room.FacilityIDs)
}

func (store *CatalogStore) GetRoom(ctx context.Context, roomID booking.RoomID) (booking.Room, error) {
	return loadRoom(store.db.WithContext(ctx), roomID)
}

func (store *CatalogStore) ListRooms(ctx context.Context, query booking.RoomQuery) ([]booking.Room, error) {
	statement := store.db.WithContext(ctx).Model(&Room{}).Preload("RoomType").Preload("Facilities")
	if query.HotelID != 0 {
		statement = statement.Where("hotel_id = ?", uint64(query.HotelID))
	}
	if query.RoomTypeID != 0 {
		statement = statement.Where("room_type_id = ?", uint64(query.RoomTypeID))
	}
	if query.Available != nil {
		statement = statement.Where("is_available = ?", *query.Available)
	}
	if query.Number != "" {
		statement = statement.Where("LOWER(number) LIKE ?", likePattern(query.Number))
	}
	var rows []Room
	err := statement.
		Order("number ASC").
		Order("id ASC").
		Limit(query.Page.Limit).
		Offset(query.Page.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectRoom, errorCodeList, err)
	}
	rooms := make([]booking.Room, 0, len(rows))
	for _, row := range rows {
		room, err := mapRoom(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectRoom, errorCodeInvalid, err)
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (store *CatalogStore) AddGalleryImage(ctx context.Context, image booking.GalleryImage) (booking.GalleryImage, error) {
	model := GalleryImage{
		HotelID:   uint64(image.HotelID),
		BlobRef:   image.BlobRef,
		Caption:   image.Caption,
		CreatedAt: image.CreatedAt,
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return booking.GalleryImage{}, wrapStoreError(errorSubjectGallery, errorCodeCreate, err)
	}
	image.ID = booking.GalleryImageID(model.ID)
	return image, nil
}

func (store *CatalogStore) ListGalleryImages(ctx context.Context, hotelID booking.HotelID) ([]booking.GalleryImage, error) {
	var rows []GalleryImage
	err := store.db.WithContext(ctx).
		Where("hotel_id = ?", uint64(hotelID)).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectGallery, errorCodeList, err)
	}
	images := make([]booking.GalleryImage, 0, len(rows))
	for _, row := range rows {
		images = append(images, booking.GalleryImage{
			ID:        booking.GalleryImageID(row.ID),
			HotelID:   booking.HotelID(row.HotelID),
			BlobRef:   row.BlobRef,
			Caption:   row.Caption,
			CreatedAt: row.CreatedAt,
		})
	}
	return images, nil
}

func (store *CatalogStore) setRoomFacilities(ctx context.Context, roomID uint64, facilityIDs []booking.FacilityID) error {
	model := Room{ID: roomID}
	if err := store.db.WithContext(ctx).Model(&model).Association("Facilities").Replace(facilityModels(facilityIDs)); err != nil {
		return wrapStoreError(errorSubjectRoom, errorCodeUpdate, err)
	}
	return nil
}

// loadRoom reads a room with the nightly rate of its room type.
func loadRoom(db *gorm.DB, roomID booking.RoomID) (booking.Room, error) {
	var model Room
	err := db.Preload("RoomType").Preload("Facilities").Where("id = ?", uint64(roomID)).Take(&model).Error
	if err != nil {
		return booking.Room{}, notFoundOr(errorSubjectRoom, errorCodeGet, err, booking.ErrUnknownRoom)
	}
	room, err := mapRoom(model)
	if err != nil {
		return booking.Room{}, wrapStoreError(errorSubjectRoom, errorCodeInvalid, err)
	}
	return room, nil
}

func facilityModels(facilityIDs []booking.FacilityID) []Facility {
	models := make([]Facility, 0, len(facilityIDs))
	for _, facilityID := range facilityIDs {
		models = append(models, Facility{ID: uint64(facilityID)})
	}
	return models
}

func facilityIDs(models []Facility) []booking.FacilityID {
	ids := make([]booking.FacilityID, 0, len(models))
	for _, model := range models {
		ids = append(ids, booking.FacilityID(model.ID))
	}
	return ids
}

func mapHotel(model Hotel) booking.Hotel {
	return booking.Hotel{
		ID:            booking.HotelID(model.ID),
		Name:          model.Name,
		Address:       model.Address,
		Region:        booking.Region(model.Region),
		Description:   model.Description,
		StarRating:    booking.StarRating(model.StarRating),
		AverageRating: model.AverageRating,
		FacilityIDs:   facilityIDs(model.Facilities),
		CreatedAt:     model.CreatedAt,
	}
}

func mapRoomType(model RoomType) (booking.RoomType, error) {
	price, err := booking.NewPrice(model.BasePrice)
	if err != nil {
		return booking.RoomType{}, err
	}
	return booking.RoomType{
		ID:          booking.RoomTypeID(model.ID),
		HotelID:     booking.HotelID(model.HotelID),
		Name:        model.Name,
		Description: model.Description,
		BasePrice:   price,
	}, nil
}

func mapRoom(model Room) (booking.Room, error) {
	rate, err := booking.NewPrice(model.RoomType.BasePrice)
	if err != nil {
		return booking.Room{}, err
	}
	return booking.Room{
		ID:          booking.RoomID(model.ID),
		HotelID:     booking.HotelID(model.HotelID),
		RoomTypeID:  booking.RoomTypeID(model.RoomTypeID),
		Number:      model.Number,
		IsAvailable: model.IsAvailable,
		FacilityIDs: facilityIDs(model.Facilities),
		NightlyRate: rate,
	}, nil
}
