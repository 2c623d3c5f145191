// Package password implementa el hash de contraseñas con bcrypt.
package password

import "golang.org/x/crypto/bcrypt"

// Hasher hashea y verifica contraseñas. Cost 0 usa bcrypt.DefaultCost.
type Hasher struct {
	Cost int
}

// Hash devuelve el hash bcrypt de la contraseña.
func (h Hasher) Hash(plain string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify indica si plain corresponde al hash.
func (h Hasher) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
