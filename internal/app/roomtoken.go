package app

import (
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

// RoomTokenService mints and checks signed admission tokens for match
// rooms. A token binds a user to one room and seat so a reconnecting
// client can prove where it belongs without another matchmaking pass.
type RoomTokenService struct {
	secret string
	issuer string
	ttl    time.Duration
}

func NewRoomTokenService(secret, issuer string, ttl time.Duration) *RoomTokenService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RoomTokenService{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
	}
}

// RoomClaims is the verified content of an admission token.
type RoomClaims struct {
	UserID string
	RoomID string
	Seat   int
}

func (s *RoomTokenService) GenerateToken(userID, roomID string, seat int) (string, error) {
	if s == nil {
		return "", fmt.Errorf("room token service is nil")
	}
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}
	if roomID == "" {
		return "", fmt.Errorf("room id is required")
	}
	if s.secret == "" || s.issuer == "" {
		return "", fmt.Errorf("room token config is incomplete")
	}

	claims := jwt.MapClaims{
		"iss":  s.issuer,
		"sub":  userID,
		"exp":  time.Now().Add(s.ttl).Unix(),
		"room": roomID,
		"seat": seat,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

func (s *RoomTokenService) VerifyToken(tokenString string) (RoomClaims, error) {
	if s == nil {
		return RoomClaims{}, fmt.Errorf("room token service is nil")
	}
	if s.secret == "" {
		return RoomClaims{}, fmt.Errorf("room token config is incomplete")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return RoomClaims{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return RoomClaims{}, fmt.Errorf("invalid room token")
	}
	if iss, _ := claims["iss"].(string); iss != s.issuer {
		return RoomClaims{}, fmt.Errorf("unexpected token issuer")
	}

	userID, _ := claims["sub"].(string)
	roomID, _ := claims["room"].(string)
	seat, _ := claims["seat"].(float64)
	if userID == "" || roomID == "" {
		return RoomClaims{}, fmt.Errorf("room token is missing claims")
	}

	return RoomClaims{UserID: userID, RoomID: roomID, Seat: int(seat)}, nil
}
