package i18n

import "github.com/hongminglow/gstore/internal/identity"

var english = map[string]string{
	LoginLockedOut:      "Your account is temporarily locked. Wait a few minutes and try again.",
	LoginNotAllowed:     "Your account is not confirmed. Check your email.",
	LoginInvalid:        "Invalid username and/or password.",
	RegisterSuccess:     "Account created successfully!",
	RegisterPhotoFailed: "Account created, but the photo could not be saved.",
	InvalidBirthDate:    "Please enter a valid birth date.",
	InvalidPhoto:        "The photo must be a JPEG, PNG, GIF or WebP image.",
	InvalidForm:         "The form contains invalid data.",

	identity.CodeDefaultError:                    "An unknown failure has occurred.",
	identity.CodeInvalidEmail:                    "The email address is invalid.",
	identity.CodeInvalidUserName:                 "The username is invalid.",
	identity.CodeDuplicateUserName:               "This username is already in use.",
	identity.CodeDuplicateEmail:                  "This email is already registered.",
	identity.CodePasswordTooShort:                "The password is too short.",
	identity.CodePasswordTooLong:                 "The password is too long.",
	identity.CodePasswordRequiresDigit:           "The password must contain at least one digit.",
	identity.CodePasswordRequiresLower:           "The password must contain at least one lowercase letter.",
	identity.CodePasswordRequiresUpper:           "The password must contain at least one uppercase letter.",
	identity.CodePasswordRequiresNonAlphanumeric: "The password must contain at least one symbol.",
	identity.CodePasswordTooWeak:                 "The password is too easy to guess.",
}

var portuguese = map[string]string{
	LoginLockedOut:      "Sua conta está bloqueada, aguarde alguns minutos e tente novamente.",
	LoginNotAllowed:     "Sua conta não está confirmada, verifique seu email.",
	LoginInvalid:        "Usuário e/ou senha inválidos.",
	RegisterSuccess:     "Conta criada com sucesso!",
	RegisterPhotoFailed: "Conta criada, mas não foi possível salvar a foto.",
	InvalidBirthDate:    "Informe uma data de nascimento válida.",
	InvalidPhoto:        "A foto deve ser uma imagem JPEG, PNG, GIF ou WebP.",
	InvalidForm:         "O formulário contém dados inválidos.",

	identity.CodeDefaultError:                    "Ocorreu um erro desconhecido.",
	identity.CodeInvalidEmail:                    "O email informado é inválido.",
	identity.CodeInvalidUserName:                 "O nome de usuário é inválido.",
	identity.CodeDuplicateUserName:               "Este nome de usuário já está em uso.",
	identity.CodeDuplicateEmail:                  "Este email já está cadastrado.",
	identity.CodePasswordTooShort:                "A senha é muito curta.",
	identity.CodePasswordTooLong:                 "A senha é muito longa.",
	identity.CodePasswordRequiresDigit:           "A senha deve conter pelo menos um número.",
	identity.CodePasswordRequiresLower:           "A senha deve conter pelo menos uma letra minúscula.",
	identity.CodePasswordRequiresUpper:           "A senha deve conter pelo menos uma letra maiúscula.",
	identity.CodePasswordRequiresNonAlphanumeric: "A senha deve conter pelo menos um caractere especial.",
	identity.CodePasswordTooWeak:                 "A senha é fácil demais de adivinhar.",
}
