package booking

const (
	operationConfigure           = "configure"
	operationCreateReservation   = "create_reservation"
	operationReschedule          = "reschedule_reservation"
	operationRecalculateTotal    = "recalculate_total"
	operationCancelReservation   = "cancel_reservation"
	operationSubmitPayment       = "submit_payment"
	operationTransition          = "transition_status"
	operationBulkTransition      = "bulk_transition"
	operationSubmitReview        = "submit_review"
	operationDeleteReview        = "delete_review"
	operationRecomputeRating     = "recompute_rating"
	operationCreateHotel         = "create_hotel"
	operationUpdateHotel         = "update_hotel"
	operationCreateRoomType      = "create_room_type"
	operationUpdateRoomType      = "update_room_type"
	operationCreateFacility      = "create_facility"
	operationCreateRoom          = "create_room"
	operationUpdateRoom          = "update_room"
	operationAddGalleryImage     = "add_gallery_image"
	operationRegister            = "register"
	operationAuthenticate        = "authenticate"
	operationReservationNotice   = "reservation_notice"
	operationWelcomeNotification = "welcome_notification"

	OperationStatusOK      = "ok"
	OperationStatusError   = "error"
	OperationStatusWarning = "warning"

	subjectService      = "service"
	subjectNotification = "notification"
	subjectStore        = "store"
	subjectReservation  = "reservation"
	codeGet             = "get"

	defaultCurrencyPlaces int32 = 2
	minCurrencyPlaces     int32 = 2
	maxCurrencyPlaces     int32 = 3
)
