package dto

import (
	"mime/multipart"
	"time"
)

type LoginRequest struct {
	Email     string `form:"email" validate:"required,max=256"`
	Password  string `form:"password" validate:"required"`
	Remember  bool   `form:"remember"`
	ReturnURL string `form:"returnUrl"`
}

type RegistrationRequest struct {
	Name      string    `form:"name" validate:"required,max=60"`
	BirthDate time.Time `form:"birthDate" validate:"required"`
	Email     string    `form:"email" validate:"required,email,max=256"`
	Password  string    `form:"password" validate:"required"`
	Photo     *Upload   `form:"photo" validate:"-"`
}

// Upload is an optional file part of a multipart form.
type Upload struct {
	File     multipart.File
	FileName string
	Size     int64
}
