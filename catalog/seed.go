package catalog

import "Gin_postgres_redis_borrow_return/models"

// SeedEquipment is the starter stock written into an empty catalog.
func SeedEquipment() []models.Equipment {
	return []models.Equipment{
		{ID: "consumable-seed-1", Name: "Shuttlecock 3.2", Category: models.CategoryConsumable, Quantity: 7},
		{ID: "AS-0001", Name: "Shuttlecock tube 2.6", Category: models.CategoryAsset, Quantity: 1},
		{ID: "AS-0002", Name: "Shuttlecock tube 2.6", Category: models.CategoryAsset, Quantity: 1},
		{ID: "main-seed-1", Name: "Other equipment", Category: models.CategoryMain, Quantity: 5},
	}
}

func SeedRooms() []models.Room {
	return []models.Room{
		{Code: "CB8720", Name: "Classroom", Type: "Classroom", Status: models.RoomAvailable},
		{Code: "CB8785", Name: "Laboratory", Type: "Laboratory", Status: models.RoomUnavailable},
	}
}
