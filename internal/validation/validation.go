// Package validation содержит проверки полей формы оформления заказа.
package validation

import (
	"strings"

	"github.com/ventusgt/checkout-system/internal/model"
)

// Фиксированный список департаментов Гватемалы. Порядок и написание
// должны в точности совпадать с тем, что принимает внешний сервис доставки.
var departments = []string{
	"Guatemala",
	"Alta Verapaz",
	"Baja Verapaz",
	"Chimaltenango",
	"Chiquimula",
	"El Progreso",
	"Escuintla",
	"Huehuetenango",
	"Izabal",
	"Jalapa",
	"Jutiapa",
	"Petén",
	"Quetzaltenango",
	"Quiché",
	"Retalhuleu",
	"Sacatepéquez",
	"San Marcos",
	"Santa Rosa",
	"Sololá",
	"Suchitepéquez",
	"Totonicapán",
	"Zacapa",
}

var departmentSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(departments))
	for _, d := range departments {
		m[d] = struct{}{}
	}
	return m
}()

// Departments возвращает список департаментов в витринном порядке.
func Departments() []string {
	out := make([]string, len(departments))
	copy(out, departments)
	return out
}

// IsValidDepartment сообщает, входит ли название в фиксированный список.
func IsValidDepartment(name string) bool {
	_, ok := departmentSet[name]
	return ok
}

// RequiredFields проверяет обязательные поля черновика заказа и возвращает
// названия незаполненных. Пустым считается поле, состоящее из одних пробелов.
func RequiredFields(d *model.OrderDraft) []string {
	var missing []string

	check := func(value, label string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, label)
		}
	}

	check(d.Name, "nombre")
	check(d.Email, "correo")
	check(d.Phone, "teléfono")
	check(d.Address.Line1, "dirección")
	check(d.Address.City, "ciudad")
	check(d.Address.Department, "departamento")

	return missing
}

// ValidationMessage собирает единое сообщение об ошибке валидации.
func ValidationMessage(missing []string) string {
	return "Completa los campos obligatorios: " + strings.Join(missing, ", ")
}
