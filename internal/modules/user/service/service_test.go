package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/perpusda/sipus/internal/entity"
	"github.com/perpusda/sipus/internal/middleware"
	"github.com/perpusda/sipus/pkg/apperror"
)

const testSecret = "test-secret"

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entity.User{}, &entity.Room{}))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username, password, role string) *entity.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &entity.User{Username: username, PasswordHash: string(hash), Role: role}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestLoginIssuesTokenWithRoomClaim(t *testing.T) {
	db := testDB(t)
	service := NewUserService(db, testSecret)

	admin := seedUser(t, db, "kepala-ruang", "rahasia1", entity.RoleRoomAdmin)
	room := &entity.Room{Name: "Referensi", AdminUserID: admin.ID}
	require.NoError(t, db.Create(room).Error)

	resp, err := service.Login(context.Background(), LoginRequest{Username: "kepala-ruang", Password: "rahasia1"})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleRoomAdmin, resp.Role)
	require.NotNil(t, resp.RoomID)
	assert.Equal(t, room.ID, *resp.RoomID)

	claims := &middleware.Claims{}
	token, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)
	assert.Equal(t, admin.ID.String(), claims.Subject)
	assert.Equal(t, entity.RoleRoomAdmin, claims.Role)
	assert.Equal(t, room.ID.String(), claims.RoomID)
}

func TestLoginSuperAdminHasNoRoom(t *testing.T) {
	db := testDB(t)
	service := NewUserService(db, testSecret)

	seedUser(t, db, "superadmin", "rahasia1", entity.RoleSuperAdmin)

	resp, err := service.Login(context.Background(), LoginRequest{Username: "superadmin", Password: "rahasia1"})
	require.NoError(t, err)
	assert.Nil(t, resp.RoomID)
}

func TestLoginWrongPassword(t *testing.T) {
	db := testDB(t)
	service := NewUserService(db, testSecret)

	seedUser(t, db, "petugas", "benar123", entity.RoleRoomAdmin)

	_, err := service.Login(context.Background(), LoginRequest{Username: "petugas", Password: "salah123"})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = service.Login(context.Background(), LoginRequest{Username: "tidak-ada", Password: "apapun"})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestChangePassword(t *testing.T) {
	db := testDB(t)
	service := NewUserService(db, testSecret)

	user := seedUser(t, db, "petugas", "lama1234", entity.RoleRoomAdmin)

	err := service.ChangePassword(context.Background(), user.ID, ChangePasswordRequest{
		OldPassword: "salah",
		NewPassword: "baru1234",
	})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	err = service.ChangePassword(context.Background(), user.ID, ChangePasswordRequest{
		OldPassword: "lama1234",
		NewPassword: "baru1234",
	})
	require.NoError(t, err)

	_, err = service.Login(context.Background(), LoginRequest{Username: "petugas", Password: "baru1234"})
	assert.NoError(t, err)
}
