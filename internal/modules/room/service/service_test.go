package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/perpusda/sipus/internal/entity"
	"github.com/perpusda/sipus/internal/modules/room/repository"
	"github.com/perpusda/sipus/pkg/apperror"
)

func newService(t *testing.T) (RoomService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entity.User{}, &entity.Room{}, &entity.Book{}))

	return NewRoomService(db, repository.NewRepository(db)), db
}

func TestCreateRoomWithAdmin(t *testing.T) {
	service, db := newService(t)

	room, err := service.Create(context.Background(), CreateRoomRequest{
		Name:          "Ruang Anak",
		AdminUsername: "admin-anak",
		AdminPassword: "rahasia1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ruang Anak", room.Name)
	require.NotNil(t, room.AdminUser)
	assert.Equal(t, "admin-anak", room.AdminUser.Username)
	assert.Equal(t, entity.RoleRoomAdmin, room.AdminUser.Role)

	var users int64
	require.NoError(t, db.Model(&entity.User{}).Count(&users).Error)
	assert.Equal(t, int64(1), users)
}

func TestCreateRoomRollsBackOnDuplicateAdmin(t *testing.T) {
	service, db := newService(t)
	ctx := context.Background()

	_, err := service.Create(ctx, CreateRoomRequest{
		Name:          "Ruang Satu",
		AdminUsername: "admin-sama",
		AdminPassword: "rahasia1",
	})
	require.NoError(t, err)

	// Same username hits the unique index; neither user nor room survives.
	_, err = service.Create(ctx, CreateRoomRequest{
		Name:          "Ruang Dua",
		AdminUsername: "admin-sama",
		AdminPassword: "rahasia1",
	})
	require.Error(t, err)

	var rooms int64
	require.NoError(t, db.Model(&entity.Room{}).Count(&rooms).Error)
	assert.Equal(t, int64(1), rooms)

	var users int64
	require.NoError(t, db.Model(&entity.User{}).Count(&users).Error)
	assert.Equal(t, int64(1), users)
}

func TestDeleteRoomRefusesWhileBooksRemain(t *testing.T) {
	service, db := newService(t)
	ctx := context.Background()

	room, err := service.Create(ctx, CreateRoomRequest{
		Name:          "Ruang Koleksi",
		AdminUsername: "admin-koleksi",
		AdminPassword: "rahasia1",
	})
	require.NoError(t, err)

	book := &entity.Book{Title: "Penghuni", RoomID: &room.ID}
	require.NoError(t, db.Create(book).Error)

	err = service.Delete(ctx, room.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	require.NoError(t, db.Delete(book).Error)
	assert.NoError(t, service.Delete(ctx, room.ID))
}
