// Package products serves the catalog. Checkout only reads products; these
// handlers are the storefront listing and the admin's edit surface.
package products

import (
	"context"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shophub/apperr"
	"shophub/media"
	"shophub/models"
	"shophub/store"
	"shophub/utils"

	"github.com/julienschmidt/httprouter"
)

// ImageFolder is where product images are stored.
const ImageFolder = "products"

type Catalog struct {
	products store.ProductStore
	uploader media.Uploader
}

func NewCatalog(products store.ProductStore, uploader media.Uploader) *Catalog {
	return &Catalog{products: products, uploader: uploader}
}

// Matches reports whether keyword occurs in the product's name, description
// or category.
func Matches(p models.Product, keyword string) bool {
	return utils.ContainsIgnoreCase(p.ProductName, keyword) ||
		utils.ContainsIgnoreCase(p.ProductDescription, keyword) ||
		utils.ContainsIgnoreCase(p.Category, keyword)
}

func (c *Catalog) List(ctx context.Context, opts utils.QueryOptions) ([]models.Product, error) {
	all, err := c.products.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if opts.Search != "" {
		all = filter(all, opts.Search)
	}
	return utils.Paginate(all, opts), nil
}

func (c *Catalog) Search(ctx context.Context, keyword string) ([]models.Product, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, apperr.InvalidArgument("keyword is required")
	}
	all, err := c.products.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return filter(all, keyword), nil
}

func filter(all []models.Product, keyword string) []models.Product {
	out := []models.Product{}
	for _, p := range all {
		if Matches(p, keyword) {
			out = append(out, p)
		}
	}
	return out
}

func (c *Catalog) Get(ctx context.Context, id string) (*models.Product, error) {
	return c.products.FindByID(ctx, id)
}

// Input is the editable part of a product. Nil fields are left unchanged on
// update.
type Input struct {
	ProductName        *string  `json:"productName"`
	ProductDescription *string  `json:"product_description"`
	Price              *float64 `json:"price"`
	Image              *string  `json:"image"`
	Status             *string  `json:"status"`
	Category           *string  `json:"category"`
}

func (in Input) apply(p *models.Product) error {
	if in.ProductName != nil {
		p.ProductName = strings.TrimSpace(*in.ProductName)
	}
	if in.ProductDescription != nil {
		p.ProductDescription = *in.ProductDescription
	}
	if in.Price != nil {
		if math.IsNaN(*in.Price) || math.IsInf(*in.Price, 0) {
			return apperr.InvalidArgument("price must be a finite number")
		}
		if *in.Price < 0 {
			return apperr.InvalidArgument("price must not be negative")
		}
		p.Price = *in.Price
	}
	if in.Image != nil {
		p.Image = *in.Image
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	return nil
}

// Add creates a product. The image, when given, is uploaded first.
func (c *Catalog) Add(ctx context.Context, in Input, file multipart.File, header *multipart.FileHeader) (*models.Product, error) {
	p := &models.Product{Status: models.ProductInStock}
	if err := in.apply(p); err != nil {
		return nil, err
	}
	if p.ProductName == "" {
		return nil, apperr.InvalidArgument("productName is required")
	}
	if file != nil {
		url, err := c.uploader.Upload(file, header, ImageFolder)
		if err != nil {
			return nil, err
		}
		p.Image = url
	}
	if err := c.products.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (c *Catalog) Update(ctx context.Context, id string, in Input) (*models.Product, error) {
	p, err := c.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(p); err != nil {
		return nil, err
	}
	if err := c.products.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (c *Catalog) Delete(ctx context.Context, id string) error {
	return c.products.Delete(ctx, id)
}

func (c *Catalog) HandleList(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	list, err := c.List(ctx, utils.ParseQueryOptions(r))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, list, "Products fetched")
}

func (c *Catalog) HandleSearch(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	list, err := c.Search(ctx, r.URL.Query().Get("keyword"))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, list, "Search results")
}

func (c *Catalog) HandleGet(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	p, err := c.Get(ctx, ps.ByName("id"))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, p, "Product fetched")
}

// HandleAdd reads a multipart form: productName, product_description,
// price, category, status and an optional image file.
func (c *Catalog) HandleAdd(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Unable to parse form")
		return
	}

	in := Input{}
	for field, dst := range map[string]**string{
		"productName":         &in.ProductName,
		"product_description": &in.ProductDescription,
		"category":            &in.Category,
		"status":              &in.Status,
	} {
		if v := r.FormValue(field); v != "" {
			*dst = &v
		}
	}
	if v := r.FormValue("price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid price")
			return
		}
		in.Price = &price
	}

	var (
		file   multipart.File
		header *multipart.FileHeader
	)
	if f, h, err := r.FormFile("image"); err == nil {
		defer f.Close()
		file, header = f, h
	}

	p, err := c.Add(ctx, in, file, header)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusCreated, p, "Product added")
}

func (c *Catalog) HandleUpdate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var in Input
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	p, err := c.Update(ctx, ps.ByName("id"), in)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, p, "Product updated")
}

func (c *Catalog) HandleDelete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := c.Delete(ctx, ps.ByName("id")); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, nil, "Product deleted")
}
